// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/verus-probe/internal/correlate"
	"github.com/petar-djukic/verus-probe/pkg/probe"
	"github.com/petar-djukic/verus-probe/pkg/types"
)

// errUnsuccessful signals that the report was written but verification did
// not succeed.
var errUnsuccessful = errors.New("verification unsuccessful")

// newAtomizeCmd creates the "atomize" command.
func newAtomizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "atomize",
		Short: "Build atoms from a SCIP index",
		Long:  "Atomize loads a SCIP JSON index, builds the call graph and prints one atom per function keyed by code name.",
		RunE: func(cmd *cobra.Command, args []string) error {
			indexPath, _ := cmd.Flags().GetString("index")

			p, err := probe.New(probeConfig())
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			atoms, err := p.Atomize(ctx, indexPath)
			if err != nil {
				return err
			}
			if !viper.GetBool(quietKey) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d atoms\n", len(atoms))
			}
			return printResult(cmd.OutOrStdout(), atoms)
		},
	}

	cmd.Flags().String("index", "", "Path to the SCIP JSON index (required)")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

// newFunctionsCmd creates the "functions" command.
func newFunctionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List functions found in the project sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")

			p, err := probe.New(probeConfig())
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			fns, err := p.Functions(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				verifiable := []types.FunctionSpan{}
				for _, f := range fns {
					if f.Verifiable() {
						verifiable = append(verifiable, f)
					}
				}
				fns = verifiable
			}
			return printResult(cmd.OutOrStdout(), fns)
		},
	}

	cmd.Flags().Bool("all", false, "Include functions without requires or ensures clauses")
	return cmd
}

// newVerifyCmd creates the "verify" command.
func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [-- verifier args...]",
		Short: "Run the verifier, or analyze a saved transcript",
		Long: "Verify runs cargo verus verify in the project and attributes every diagnostic to the function " +
			"that contains it. With --from-file the transcript is read from a file (or - for stdin) instead.",
		RunE: runVerify,
	}

	cmd.Flags().String("from-file", "", "Analyze a saved verifier transcript instead of running the verifier")
	cmd.Flags().Int("exit-code", 0, "Exit code of the saved transcript's verifier run")
	cmd.Flags().Bool("functions-only", false, "List verifiable functions without verifying")
	cmd.Flags().String("module", "", "Restrict to a module, e.g. backend::field")
	cmd.Flags().String("function", "", "Restrict to a function name")
	cmd.Flags().String("atoms", "", "Atoms JSON used to add code names to the report")
	cmd.Flags().Bool("proofs", false, "Print results keyed by code name (requires --atoms)")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	fromFile, _ := cmd.Flags().GetString("from-file")
	exitCode, _ := cmd.Flags().GetInt("exit-code")
	functionsOnly, _ := cmd.Flags().GetBool("functions-only")
	atomsPath, _ := cmd.Flags().GetString("atoms")
	proofs, _ := cmd.Flags().GetBool("proofs")

	filter := probe.Filter{}
	filter.Module, _ = cmd.Flags().GetString("module")
	filter.Function, _ = cmd.Flags().GetString("function")

	if proofs && atomsPath == "" {
		return fmt.Errorf("--proofs requires --atoms")
	}

	var atoms types.Atoms
	if atomsPath != "" {
		var err error
		if atoms, err = readAtoms(atomsPath); err != nil {
			return err
		}
	}

	p, err := probe.New(probeConfig())
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var result *types.AnalysisResult
	switch {
	case functionsOnly:
		result, err = p.Analyze(ctx, nil, filter, atoms)
	case fromFile != "":
		output, readErr := readTranscript(fromFile, cmd.InOrStdin())
		if readErr != nil {
			return readErr
		}
		result, err = p.Analyze(ctx, &probe.Transcript{Output: output, ExitCode: exitCode}, filter, atoms)
	default:
		result, err = p.Verify(ctx, probe.VerifyOptions{Filter: filter, ExtraArgs: args, Atoms: atoms})
	}
	if err != nil {
		return err
	}

	if !viper.GetBool(quietKey) {
		printSummary(cmd.ErrOrStderr(), result)
	}

	if proofs {
		err = printResult(cmd.OutOrStdout(), correlate.Proofs(result))
	} else {
		err = printResult(cmd.OutOrStdout(), result)
	}
	if err != nil {
		return err
	}
	return statusError(result.Status)
}

// newRunCmd creates the "run" command.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [-- verifier args...]",
		Short: "Atomize, verify and report results per code name",
		RunE: func(cmd *cobra.Command, args []string) error {
			indexPath, _ := cmd.Flags().GetString("index")
			filter := probe.Filter{}
			filter.Module, _ = cmd.Flags().GetString("module")
			filter.Function, _ = cmd.Flags().GetString("function")

			p, err := probe.New(probeConfig())
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			result, err := p.Run(ctx, indexPath, probe.VerifyOptions{Filter: filter, ExtraArgs: args})
			if err != nil {
				return err
			}

			if !viper.GetBool(quietKey) {
				printSummary(cmd.ErrOrStderr(), result.Analysis)
			}
			if err := printResult(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			return statusError(result.Analysis.Status)
		},
	}

	cmd.Flags().String("index", "", "Path to the SCIP JSON index (required)")
	cmd.Flags().String("module", "", "Restrict to a module, e.g. backend::field")
	cmd.Flags().String("function", "", "Restrict to a function name")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

func statusError(s types.Status) error {
	switch s {
	case types.StatusVerificationFailed, types.StatusCompilationFailed:
		return fmt.Errorf("%w: %s", errUnsuccessful, s)
	}
	return nil
}

func readTranscript(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	return string(data), nil
}

func readAtoms(path string) (types.Atoms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading atoms: %w", err)
	}
	var atoms types.Atoms
	if err := json.Unmarshal(data, &atoms); err != nil {
		return nil, fmt.Errorf("parsing atoms %s: %w", path, err)
	}
	return atoms, nil
}
