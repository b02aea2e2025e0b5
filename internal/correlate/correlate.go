// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package correlate attributes verifier diagnostics to functions and
// classifies the outcome of a verification run.
package correlate

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/petar-djukic/verus-probe/internal/diagnostics"
	"github.com/petar-djukic/verus-probe/internal/funcindex"
	"github.com/petar-djukic/verus-probe/pkg/types"
)

// Transcript is the combined output of one verifier run and its exit code.
type Transcript struct {
	Output   string
	ExitCode int
}

// Input is everything the correlator joins.
type Input struct {
	Functions      []types.FunctionSpan // Every located function; non-verifiable ones are ignored
	Transcript     *Transcript          // nil when no verification was run
	ModuleFilter   string               // e.g. "backend::field", empty for all
	FunctionFilter string               // exact display name, empty for all
}

type fnKey struct {
	name  string
	file  string
	start int
}

func keyOf(s types.FunctionSpan) fnKey {
	return fnKey{name: s.Name, file: s.File, start: s.StartLine}
}

// Analyze classifies every verifiable function and the run as a whole.
func Analyze(in Input) *types.AnalysisResult {
	verifiable := verifiableFunctions(in.Functions)

	if in.Transcript == nil {
		return functionsOnly(verifiable, in)
	}

	d := diagnostics.Parse(in.Transcript.Output)
	idx := funcindex.New(verifiable)

	failed := make(map[fnKey]bool)
	mark := func(file string, line int) {
		if s, ok := idx.Find(file, line); ok {
			failed[keyOf(s)] = true
		}
	}
	for _, e := range d.Errors {
		if e.HasLocation() {
			mark(e.File, e.Line)
		}
	}
	for _, f := range d.Failures {
		if f.HasLocation() {
			mark(f.File, f.Line)
		}
	}
	for _, loc := range d.Locations {
		mark(loc.File, loc.Line)
	}
	for _, w := range d.Warnings {
		if !w.HasLocation() {
			continue
		}
		if s, ok := idx.Find(w.File, w.Line); ok {
			slog.Debug("warning attributed", "function", s.Name, "file", s.File, "message", w.Message)
		}
	}

	status := Classify(d.HasSummary, len(d.Failures) > 0, len(d.Errors) > 0, in.Transcript.ExitCode)

	var section types.VerificationSection
	if status != types.StatusCompilationFailed {
		for _, s := range verifiable {
			loc := locationOf(s)
			switch {
			case failed[keyOf(s)]:
				section.FailedFunctions = append(section.FailedFunctions, loc)
			case s.HasTrustedAssumption:
				section.UnverifiedFunctions = append(section.UnverifiedFunctions, loc)
			default:
				section.VerifiedFunctions = append(section.VerifiedFunctions, loc)
			}
		}
	}

	keep := filterFunc(in.ModuleFilter, in.FunctionFilter)
	section.FailedFunctions = filterLocations(section.FailedFunctions, keep)
	section.VerifiedFunctions = filterLocations(section.VerifiedFunctions, keep)
	section.UnverifiedFunctions = filterLocations(section.UnverifiedFunctions, keep)
	section.Errors = nonNil(d.Failures)

	result := &types.AnalysisResult{
		Status:       status,
		Verification: section,
		Compilation: types.CompilationSection{
			Errors:   nonNil(d.Errors),
			Warnings: nonNil(d.Warnings),
		},
	}
	result.Summary = types.Summary{
		TotalFunctions:      len(section.FailedFunctions) + len(section.VerifiedFunctions) + len(section.UnverifiedFunctions),
		FailedFunctions:     len(section.FailedFunctions),
		VerifiedFunctions:   len(section.VerifiedFunctions),
		UnverifiedFunctions: len(section.UnverifiedFunctions),
		VerificationErrors:  len(d.Failures),
		CompilationErrors:   len(d.Errors),
		CompilationWarnings: len(d.Warnings),
	}
	return result
}

// Classify applies the status precedence: a verifier summary decides
// between success and verification failure; without one, compilation errors
// mean the build failed; a nonzero exit with no other signal also counts as
// a failed build.
func Classify(hasSummary, hasFailures, hasCompileErrors bool, exitCode int) types.Status {
	switch {
	case hasSummary && hasFailures:
		return types.StatusVerificationFailed
	case hasSummary:
		return types.StatusSuccess
	case hasCompileErrors:
		return types.StatusCompilationFailed
	case exitCode != 0 && !hasFailures:
		return types.StatusCompilationFailed
	default:
		return types.StatusSuccess
	}
}

func functionsOnly(verifiable []types.FunctionSpan, in Input) *types.AnalysisResult {
	keep := filterFunc(in.ModuleFilter, in.FunctionFilter)
	var all []types.FunctionLocation
	for _, s := range verifiable {
		all = append(all, locationOf(s))
	}
	all = filterLocations(all, keep)

	return &types.AnalysisResult{
		Status:       types.StatusFunctionsOnly,
		Summary:      types.Summary{TotalFunctions: len(all)},
		Verification: types.VerificationSection{Functions: all, Errors: []types.VerificationFailure{}},
		Compilation: types.CompilationSection{
			Errors:   []types.CompilationError{},
			Warnings: []types.CompilationError{},
		},
	}
}

func verifiableFunctions(spans []types.FunctionSpan) []types.FunctionSpan {
	var out []types.FunctionSpan
	for _, s := range spans {
		if s.Verifiable() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].StartLine < out[j].StartLine
	})
	return out
}

func locationOf(s types.FunctionSpan) types.FunctionLocation {
	return types.FunctionLocation{
		DisplayName: s.Name,
		CodePath:    s.File,
		CodeText:    types.CodeText{LinesStart: s.StartLine, LinesEnd: s.EndLine},
	}
}

// filterFunc builds the module and function filter. A module filter a::b
// keeps paths containing /a/b.rs or /a/b/.
func filterFunc(module, function string) func(types.FunctionLocation) bool {
	modulePath := strings.ReplaceAll(module, "::", "/")
	return func(loc types.FunctionLocation) bool {
		if modulePath != "" {
			p := "/" + strings.TrimLeft(loc.CodePath, "/")
			if !strings.Contains(p, "/"+modulePath+".rs") && !strings.Contains(p, "/"+modulePath+"/") {
				return false
			}
		}
		if function != "" && loc.DisplayName != function {
			return false
		}
		return true
	}
}

func filterLocations(locs []types.FunctionLocation, keep func(types.FunctionLocation) bool) []types.FunctionLocation {
	out := []types.FunctionLocation{}
	for _, l := range locs {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
