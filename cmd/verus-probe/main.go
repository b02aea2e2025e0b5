// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command verus-probe maps the functions of a Verus project and reports
// which of them the verifier proved.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errUnsuccessful) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "verus-probe",
		Short: "Correlate Verus verification results with project functions",
		Long: "verus-probe builds a call graph from a SCIP symbol index, locates every function " +
			"in the Rust sources, runs the Verus verifier and attributes its diagnostics to functions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogger(viper.GetString(logFileKey), viper.GetBool(verboseKey))
		},
	}

	// Global flags.
	flags := rootCmd.PersistentFlags()
	flags.String(workdirKey, ".", "Cargo project root")
	flags.String(packageKey, "", "Cargo package to verify (default: the manifest's package)")
	flags.Int(workersKey, 0, "Parallel source parsers (default: number of CPUs)")
	flags.Bool(noGitKey, false, "Do not record git provenance")
	flags.StringP(outputKey, "o", "", "Write JSON to this file instead of stdout")
	flags.BoolP(quietKey, "q", false, "Do not print the summary on stderr")
	flags.String(logFileKey, "", "Log file (default "+defaultLogFilename+")")
	flags.BoolP(verboseKey, "v", false, "Log at debug level")

	// Bind flags to viper.
	for _, key := range []string{workdirKey, packageKey, workersKey, noGitKey, outputKey, quietKey, verboseKey} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
	_ = viper.BindPFlag(logFileKey, flags.Lookup(logFileKey))

	// Env vars: VERUS_PROBE_WORKDIR, VERUS_PROBE_VERIFIER_ENV_FILE, etc.
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	// Config file.
	viper.SetConfigName(".verus-probe")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error; config file is optional.

	// Add commands.
	rootCmd.AddCommand(newAtomizeCmd())
	rootCmd.AddCommand(newFunctionsCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print verus-probe version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "verus-probe %s\n", version)
		},
	}
}
