// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"fmt"
	"os"

	"github.com/petar-djukic/verus-probe/internal/correlate"
	"github.com/petar-djukic/verus-probe/internal/pipeline"
	"github.com/petar-djukic/verus-probe/internal/project"
	"github.com/petar-djukic/verus-probe/internal/verifier"
	"github.com/petar-djukic/verus-probe/pkg/types"
)

// New validates the config, reads the project manifest, and returns a
// ready-to-use Probe. It does not parse sources; that happens per call.
func New(cfg Config) (Probe, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	manifest, err := project.Load(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg, manifest)

	v, err := verifier.New(verifier.Config{
		Command: cfg.VerifierCommand,
		Env:     cfg.VerifierEnv,
		EnvFile: cfg.VerifierEnvFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	runner := pipeline.NewRunner(pipeline.Deps{
		Verifier: v,
		WorkDir:  manifest.Root,
		Package:  cfg.Package,
		Workers:  cfg.Workers,
		NoGit:    cfg.NoGit,
	})
	return &probeAdapter{runner: runner}, nil
}

// probeAdapter adapts internal/pipeline.Runner to the public Probe interface.
type probeAdapter struct {
	runner *pipeline.Runner
}

func (a *probeAdapter) Atomize(ctx context.Context, indexPath string) (types.Atoms, error) {
	res, err := a.runner.Atomize(ctx, indexPath)
	if err != nil {
		return nil, err
	}
	return res.Atoms, nil
}

func (a *probeAdapter) Functions(ctx context.Context) ([]types.FunctionSpan, error) {
	return a.runner.Functions(ctx)
}

func (a *probeAdapter) Analyze(ctx context.Context, t *Transcript, f Filter, atoms types.Atoms) (*types.AnalysisResult, error) {
	req := pipeline.AnalyzeRequest{Module: f.Module, Function: f.Function, Atoms: atoms}
	if t != nil {
		req.Transcript = &correlate.Transcript{Output: t.Output, ExitCode: t.ExitCode}
	}
	return a.runner.Analyze(ctx, req)
}

func (a *probeAdapter) Verify(ctx context.Context, opts VerifyOptions) (*types.AnalysisResult, error) {
	res, _, err := a.runner.Verify(ctx, verifyRequest(opts))
	return res, err
}

func (a *probeAdapter) Run(ctx context.Context, indexPath string, opts VerifyOptions) (*RunResult, error) {
	ir, err := a.runner.Run(ctx, indexPath, verifyRequest(opts))
	if ir == nil {
		return nil, err
	}
	return &RunResult{
		Atoms:    ir.Atoms,
		Analysis: ir.Analysis,
		Proofs:   ir.Proofs,
		ExitCode: ir.ExitCode,
	}, err
}

func verifyRequest(opts VerifyOptions) pipeline.VerifyRequest {
	return pipeline.VerifyRequest{
		Module:    opts.Module,
		Function:  opts.Function,
		ExtraArgs: opts.ExtraArgs,
		Atoms:     opts.Atoms,
	}
}

// validateConfig checks that required fields are present.
func validateConfig(cfg Config) error {
	if cfg.WorkDir == "" {
		return fmt.Errorf("WorkDir is required")
	}
	if info, err := os.Stat(cfg.WorkDir); err != nil || !info.IsDir() {
		return fmt.Errorf("WorkDir %q does not exist or is not a directory", cfg.WorkDir)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("Workers must not be negative")
	}
	if len(cfg.VerifierCommand) > 0 && cfg.VerifierCommand[0] == "" {
		return fmt.Errorf("VerifierCommand must name a program")
	}
	return nil
}

// applyDefaults fills in zero-value fields from the manifest.
func applyDefaults(cfg *Config, m *project.Manifest) {
	if cfg.Package == "" && !m.IsWorkspace() {
		cfg.Package = m.Package
	}
}
