// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package verifier runs the external deductive verifier over a Cargo project
// and captures its transcript.
package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrToolFailure is returned when the verifier process could not be started
// or did not run to completion.
var ErrToolFailure = errors.New("verifier failed to run")

// DefaultCommand is the verifier invocation used when Config.Command is empty.
var DefaultCommand = []string{"cargo", "verus", "verify"}

// Config configures a Runner.
type Config struct {
	Command []string          // Verifier command and leading args (default: cargo verus verify)
	Env     map[string]string // Extra environment for the verifier process only
	EnvFile string            // Optional dotenv file merged under Env
}

// Request describes one verification run.
type Request struct {
	Dir       string   // Project root
	Package   string   // Cargo package, empty for the default
	Module    string   // Restrict verification to this module
	Function  string   // Restrict verification to this function
	ExtraArgs []string // Passed through to the verifier
}

// Result is the outcome of a run. A failed verification is a Result with a
// nonzero ExitCode, not an error.
type Result struct {
	Output   string
	ExitCode int
	Args     []string
	Duration time.Duration
}

// Runner launches the verifier.
type Runner struct {
	command []string
	env     map[string]string
}

// New creates a Runner. The dotenv file, if any, is read once here; values
// in cfg.Env take precedence over it.
func New(cfg Config) (*Runner, error) {
	env := make(map[string]string)
	if cfg.EnvFile != "" {
		fileEnv, err := godotenv.Read(cfg.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", cfg.EnvFile, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for k, v := range cfg.Env {
		env[k] = v
	}

	command := cfg.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &Runner{command: append([]string(nil), command...), env: env}, nil
}

// Args builds the verifier arguments for req, excluding the command itself.
// Module and function restrictions go after a "--" separator; a bare "--"
// is only added before extra args when there are no restrictions.
func Args(req Request) []string {
	var args []string
	if req.Package != "" {
		args = append(args, "-p", req.Package)
	}

	var verusArgs []string
	if req.Module != "" {
		verusArgs = append(verusArgs, "--verify-only-module", req.Module)
	}
	if req.Function != "" {
		verusArgs = append(verusArgs, "--verify-function", req.Function)
	}

	switch {
	case len(verusArgs) > 0:
		args = append(args, "--")
		args = append(args, verusArgs...)
		args = append(args, req.ExtraArgs...)
	case len(req.ExtraArgs) > 0:
		args = append(args, "--")
		args = append(args, req.ExtraArgs...)
	}
	return args
}

// Run executes the verifier and returns its combined transcript, stdout
// first, then stderr.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	args := append(append([]string(nil), r.command[1:]...), Args(req)...)

	cmd := exec.CommandContext(ctx, r.command[0], args...)
	cmd.Dir = req.Dir
	cmd.Env = r.environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Info("running verifier", "dir", req.Dir, "command", r.command[0], "args", args)
	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Output:   stdout.String() + "\n" + stderr.String(),
		Args:     args,
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s: %v", ErrToolFailure, r.command[0], err)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrToolFailure, ctx.Err())
		}
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			result.ExitCode = 1
		}
	}

	slog.Info("verifier finished", "exit_code", result.ExitCode, "duration", result.Duration)
	return result, nil
}

// environ returns the process environment with the runner's overrides
// applied, sorted for reproducibility.
func (r *Runner) environ() []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range r.env {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
