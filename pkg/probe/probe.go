// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package probe is the public interface of verus-probe: it maps the
// functions of a Verus project, runs the verifier and reports which
// functions verified, failed or rely on trusted assumptions.
package probe

import (
	"context"
	"errors"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

// Error types for the Probe API.
var (
	ErrInvalidConfig = errors.New("invalid config")
)

// Config configures a Probe instance.
type Config struct {
	WorkDir         string            // Cargo project root (required)
	Package         string            // Cargo package; defaults to the manifest's [package].name
	Workers         int               // Parallel source parsers (default: number of CPUs)
	NoGit           bool              // Do not record git provenance
	VerifierCommand []string          // Verifier invocation (default: cargo verus verify)
	VerifierEnv     map[string]string // Extra environment for the verifier process
	VerifierEnvFile string            // Optional dotenv file for the verifier process
}

// Filter narrows a report to one module and/or one function.
type Filter struct {
	Module   string // Rust module path, e.g. "backend::field"
	Function string // Exact function name
}

// VerifyOptions configures a verifier run.
type VerifyOptions struct {
	Filter
	ExtraArgs []string    // Passed through to the verifier
	Atoms     types.Atoms // Optional; adds code names to the report
}

// Transcript is a previously captured verifier output.
type Transcript struct {
	Output   string
	ExitCode int
}

// RunResult is the outcome of a full atomize-and-verify run.
type RunResult struct {
	Atoms    types.Atoms                 `json:"atoms"`
	Analysis *types.AnalysisResult       `json:"analysis"`
	Proofs   map[string]types.ProofEntry `json:"proofs"`
	ExitCode int                         `json:"exit_code"`
}

// Probe analyzes one Cargo project.
type Probe interface {
	// Atomize builds the call graph from a symbol index and returns one atom
	// per function, keyed by code name.
	Atomize(ctx context.Context, indexPath string) (types.Atoms, error)

	// Functions lists every function found in the project sources.
	Functions(ctx context.Context) ([]types.FunctionSpan, error)

	// Analyze correlates a captured transcript with the project functions.
	// A nil transcript lists verifiable functions without classifying them.
	Analyze(ctx context.Context, t *Transcript, f Filter, atoms types.Atoms) (*types.AnalysisResult, error)

	// Verify runs the verifier and analyzes its output.
	Verify(ctx context.Context, opts VerifyOptions) (*types.AnalysisResult, error)

	// Run atomizes, verifies and reports per code name.
	Run(ctx context.Context, indexPath string, opts VerifyOptions) (*RunResult, error)
}
