// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/petar-djukic/verus-probe/pkg/probe"
)

const (
	envPrefix = "VERUS_PROBE"

	workdirKey = "workdir"
	packageKey = "package"
	workersKey = "workers"
	noGitKey   = "no-git"
	outputKey  = "output"
	quietKey   = "quiet"
	verboseKey = "verbose"

	verifierCommandKey = "verifier.command"
	verifierEnvKey     = "verifier.env"
	verifierEnvFileKey = "verifier.env-file"

	logFileKey       = "log.file"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max-size"
	logMaxBackupsKey = "log.max-backups"
	logMaxAgeKey     = "log.max-age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".verus-probe.log"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

func setDefaults() {
	viper.SetDefault(logFileKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, "info")
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
	viper.SetDefault(verifierCommandKey, []string{})
	viper.SetDefault(verifierEnvKey, map[string]string{})
}

// probeConfig assembles the public API config from flags, environment and
// config file.
func probeConfig() probe.Config {
	return probe.Config{
		WorkDir:         viper.GetString(workdirKey),
		Package:         viper.GetString(packageKey),
		Workers:         viper.GetInt(workersKey),
		NoGit:           viper.GetBool(noGitKey),
		VerifierCommand: viper.GetStringSlice(verifierCommandKey),
		VerifierEnv:     viper.GetStringMapString(verifierEnvKey),
		VerifierEnvFile: viper.GetString(verifierEnvFileKey),
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger points the global slog logger at a rotating log file.
// It logs at the configured level, or at Debug when verbose is set.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	logLevel := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	if verbose {
		logLevel = slog.LevelDebug
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
