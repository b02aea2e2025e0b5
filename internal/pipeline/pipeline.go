// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeline wires the probe stages together: symbol index to atoms,
// sources to function spans, and verifier transcripts to an analysis result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petar-djukic/verus-probe/internal/callgraph"
	"github.com/petar-djukic/verus-probe/internal/correlate"
	gitpkg "github.com/petar-djukic/verus-probe/internal/git"
	"github.com/petar-djukic/verus-probe/internal/scip"
	"github.com/petar-djukic/verus-probe/internal/spans"
	"github.com/petar-djukic/verus-probe/internal/verifier"
	"github.com/petar-djukic/verus-probe/pkg/types"
)

// Verifier abstracts the verifier process so the pipeline is testable.
type Verifier interface {
	Run(ctx context.Context, req verifier.Request) (*verifier.Result, error)
}

// Deps holds injected dependencies for the runner.
type Deps struct {
	Verifier Verifier // nil disables Verify and Run
	WorkDir  string   // Project root
	Package  string   // Cargo package passed to the verifier
	Workers  int      // Parallel source parsers; <= 0 uses all CPUs
	NoGit    bool     // Skip provenance
}

// AtomizeResult is the outcome of Atomize.
type AtomizeResult struct {
	Atoms types.Atoms
	Graph callgraph.BuildStats
	Spans spans.Stats
}

// AnalyzeRequest selects what Analyze correlates.
type AnalyzeRequest struct {
	Transcript *correlate.Transcript // nil lists functions only
	Module     string
	Function   string
	Atoms      types.Atoms // Optional; enables code names in the result
}

// VerifyRequest configures a verifier run.
type VerifyRequest struct {
	Module    string
	Function  string
	ExtraArgs []string
	Atoms     types.Atoms
}

// RunResult is the outcome of a full Run.
type RunResult struct {
	Atoms    types.Atoms
	Analysis *types.AnalysisResult
	Proofs   map[string]types.ProofEntry
	ExitCode int
}

// Runner orchestrates the probe stages.
type Runner struct {
	deps    Deps
	locator *spans.Locator
}

// NewRunner creates a Runner with the given dependencies.
func NewRunner(deps Deps) *Runner {
	return &Runner{deps: deps, locator: spans.NewLocator(deps.Workers)}
}

// Atomize turns a symbol index into atoms with exact line spans.
func (r *Runner) Atomize(ctx context.Context, indexPath string) (*AtomizeResult, error) {
	// Step 1: Load and validate the index.
	idx, err := scip.Load(indexPath)
	if err != nil {
		return nil, fmt.Errorf("loading symbol index: %w", err)
	}

	// Step 2: Build the call graph.
	graph, buildStats := callgraph.Build(idx)
	slog.Info("built call graph",
		"nodes", buildStats.Nodes,
		"edges", buildStats.Edges,
		"external", buildStats.External,
		"pairing_mismatches", buildStats.PairingMismatches)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 3: Parse the indexed sources for exact spans.
	spanMap, spanStats, err := r.locator.LocateFiles(ctx, r.deps.WorkDir, graph.Files())
	if err != nil {
		return nil, fmt.Errorf("locating function spans: %w", err)
	}

	// Step 4: Derive atoms.
	atoms, err := callgraph.BuildAtoms(graph, spanMap)
	if err != nil {
		return nil, err
	}

	return &AtomizeResult{Atoms: atoms, Graph: buildStats, Spans: spanStats}, nil
}

// Functions lists every function in the project sources.
func (r *Runner) Functions(ctx context.Context) ([]types.FunctionSpan, error) {
	m, stats, err := r.locator.LocateTree(ctx, r.deps.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("locating function spans: %w", err)
	}
	if stats.FilesParsed == 0 {
		slog.Warn("no Rust sources found", "dir", r.deps.WorkDir)
	}
	return m.Spans(), nil
}

// Analyze correlates a transcript, if any, with the project's functions.
func (r *Runner) Analyze(ctx context.Context, req AnalyzeRequest) (*types.AnalysisResult, error) {
	// Step 1: Locate functions.
	functions, err := r.Functions(ctx)
	if err != nil {
		return nil, err
	}

	// Step 2: Correlate and classify.
	result := correlate.Analyze(correlate.Input{
		Functions:      functions,
		Transcript:     req.Transcript,
		ModuleFilter:   req.Module,
		FunctionFilter: req.Function,
	})

	// Step 3: Attach code names.
	if len(req.Atoms) > 0 {
		n := correlate.EnrichWithCodeNames(result, req.Atoms)
		slog.Debug("enriched functions with code names", "matched", n)
	}

	// Step 4: Record provenance.
	result.Provenance = r.provenance()

	slog.Info("analysis complete",
		"status", result.Status,
		"failed", result.Summary.FailedFunctions,
		"verified", result.Summary.VerifiedFunctions,
		"unverified", result.Summary.UnverifiedFunctions)
	return result, nil
}

// Verify runs the verifier and analyzes its transcript.
func (r *Runner) Verify(ctx context.Context, req VerifyRequest) (*types.AnalysisResult, int, error) {
	if r.deps.Verifier == nil {
		return nil, 0, fmt.Errorf("no verifier configured")
	}

	run, err := r.deps.Verifier.Run(ctx, verifier.Request{
		Dir:       r.deps.WorkDir,
		Package:   r.deps.Package,
		Module:    req.Module,
		Function:  req.Function,
		ExtraArgs: req.ExtraArgs,
	})
	if err != nil {
		return nil, 0, err
	}

	result, err := r.Analyze(ctx, AnalyzeRequest{
		Transcript: &correlate.Transcript{Output: run.Output, ExitCode: run.ExitCode},
		Module:     req.Module,
		Function:   req.Function,
		Atoms:      req.Atoms,
	})
	if err != nil {
		return nil, run.ExitCode, err
	}
	return result, run.ExitCode, nil
}

// Run atomizes the index, verifies the project and reports results keyed by
// code name.
func (r *Runner) Run(ctx context.Context, indexPath string, req VerifyRequest) (*RunResult, error) {
	atomized, err := r.Atomize(ctx, indexPath)
	if err != nil {
		return nil, err
	}

	req.Atoms = atomized.Atoms
	analysis, exitCode, err := r.Verify(ctx, req)
	if err != nil {
		return nil, err
	}

	return &RunResult{
		Atoms:    atomized.Atoms,
		Analysis: analysis,
		Proofs:   correlate.Proofs(analysis),
		ExitCode: exitCode,
	}, nil
}

func (r *Runner) provenance() *types.Provenance {
	if r.deps.NoGit {
		if r.deps.Package == "" {
			return nil
		}
		return &types.Provenance{Package: r.deps.Package}
	}

	p := &types.Provenance{Package: r.deps.Package}
	repo, err := gitpkg.Open(gitpkg.Config{WorkDir: r.deps.WorkDir})
	if err != nil {
		if !errors.Is(err, gitpkg.ErrNoGit) {
			slog.Warn("opening git repository", "error", err)
		}
		return p
	}
	gp, err := repo.Provenance()
	if err != nil {
		slog.Warn("reading git provenance", "error", err)
		return p
	}
	gp.Package = r.deps.Package
	return gp
}
