// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package correlate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

const failingRun = `   Compiling demo v0.1.0 (/work/demo)
error: postcondition not satisfied
  --> src/foo.rs:42:5
   |
42 |     0
   |     ^
   |

verification results:: 3 verified, 1 errors
error: could not compile ` + "`demo`" + ` (lib) due to 1 previous error
`

const passingRun = `   Compiling demo v0.1.0 (/work/demo)
verification results:: 4 verified, 0 errors
`

const brokenBuild = `error[E0425]: cannot find value ` + "`y`" + ` in this scope
 --> src/foo.rs:12:5
  |
12 |     y
  |     ^ not found in this scope

error: could not compile ` + "`demo`" + ` (lib) due to 1 previous error
`

func fn(file, name string, start, end int) types.FunctionSpan {
	return types.FunctionSpan{
		File: file, Name: name, StartLine: start, NameLine: start, EndLine: end,
		Kind: types.FnPlain, HasEnsures: true,
	}
}

func projectFunctions() []types.FunctionSpan {
	trusted := fn("src/foo.rs", "trusted", 10, 20)
	trusted.HasTrustedAssumption = true
	spec := fn("src/foo.rs", "pure", 25, 30)
	spec.Kind = types.FnSpec
	plain := types.FunctionSpan{File: "src/foo.rs", Name: "plain", StartLine: 32, NameLine: 32, EndLine: 35, Kind: types.FnPlain}
	return []types.FunctionSpan{
		fn("src/foo.rs", "positive", 40, 45),
		trusted,
		spec,
		plain,
		fn("src/backend/field.rs", "mul", 5, 9),
	}
}

func names(locs []types.FunctionLocation) []string {
	out := []string{}
	for _, l := range locs {
		out = append(out, l.DisplayName)
	}
	return out
}

func TestAnalyze_VerificationFailure(t *testing.T) {
	res := Analyze(Input{
		Functions:  projectFunctions(),
		Transcript: &Transcript{Output: failingRun, ExitCode: 1},
	})

	assert.Equal(t, types.StatusVerificationFailed, res.Status)
	assert.Equal(t, []string{"positive"}, names(res.Verification.FailedFunctions))
	assert.Equal(t, []string{"mul"}, names(res.Verification.VerifiedFunctions))
	assert.Equal(t, []string{"trusted"}, names(res.Verification.UnverifiedFunctions))

	assert.Equal(t, 1, res.Summary.VerificationErrors)
	assert.Equal(t, 1, res.Summary.FailedFunctions)
	assert.Equal(t, 3, res.Summary.TotalFunctions)
	assert.Empty(t, res.Compilation.Errors)

	require.Len(t, res.Verification.Errors, 1)
	assert.Equal(t, "postcondition not satisfied", res.Verification.Errors[0].ErrorType)

	failed := res.Verification.FailedFunctions[0]
	assert.Equal(t, "src/foo.rs", failed.CodePath)
	assert.Equal(t, types.CodeText{LinesStart: 40, LinesEnd: 45}, failed.CodeText)
}

func TestAnalyze_CleanRun(t *testing.T) {
	res := Analyze(Input{
		Functions:  projectFunctions(),
		Transcript: &Transcript{Output: passingRun},
	})

	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Empty(t, res.Verification.FailedFunctions)
	assert.ElementsMatch(t, []string{"positive", "mul"}, names(res.Verification.VerifiedFunctions))
	assert.Equal(t, 0, res.Summary.VerificationErrors)
	assert.Empty(t, res.Compilation.Errors)
	assert.Empty(t, res.Compilation.Warnings)
	assert.Empty(t, res.Verification.Errors)
}

func TestAnalyze_CompilationFailureEmptiesPartitions(t *testing.T) {
	res := Analyze(Input{
		Functions:  projectFunctions(),
		Transcript: &Transcript{Output: brokenBuild, ExitCode: 101},
	})

	assert.Equal(t, types.StatusCompilationFailed, res.Status)
	assert.Empty(t, res.Verification.FailedFunctions)
	assert.Empty(t, res.Verification.VerifiedFunctions)
	assert.Empty(t, res.Verification.UnverifiedFunctions)
	assert.Equal(t, 0, res.Summary.TotalFunctions)
	assert.Equal(t, 2, res.Summary.CompilationErrors)
}

func TestAnalyze_NonzeroExitWithoutSignals(t *testing.T) {
	res := Analyze(Input{
		Functions:  projectFunctions(),
		Transcript: &Transcript{Output: "Killed\n", ExitCode: 137},
	})
	assert.Equal(t, types.StatusCompilationFailed, res.Status)

	res = Analyze(Input{
		Functions:  projectFunctions(),
		Transcript: &Transcript{Output: ""},
	})
	assert.Equal(t, types.StatusSuccess, res.Status)
}

func TestAnalyze_WarningsDoNotFail(t *testing.T) {
	output := "warning: unused variable: `x`\n --> src/foo.rs:41:9\n\n" + passingRun
	res := Analyze(Input{
		Functions:  projectFunctions(),
		Transcript: &Transcript{Output: output},
	})

	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Empty(t, res.Verification.FailedFunctions)
	assert.Equal(t, 1, res.Summary.CompilationWarnings)
}

func TestAnalyze_AbsoluteVerifierPaths(t *testing.T) {
	output := `error: assertion failed
  --> /home/user/demo/src/backend/field.rs:7:9
   |

verification results:: 1 verified, 1 errors
`
	res := Analyze(Input{
		Functions:  projectFunctions(),
		Transcript: &Transcript{Output: output, ExitCode: 1},
	})
	assert.Equal(t, []string{"mul"}, names(res.Verification.FailedFunctions))
}

func TestAnalyze_Filters(t *testing.T) {
	tests := []struct {
		name     string
		module   string
		function string
		want     []string
	}{
		{"module", "backend::field", "", []string{"mul"}},
		{"module directory", "backend", "", []string{"mul"}},
		{"function", "", "positive", []string{"positive"}},
		{"both", "foo", "trusted", []string{"trusted"}},
		{"no match", "backend::curve", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Analyze(Input{
				Functions:      projectFunctions(),
				Transcript:     &Transcript{Output: failingRun, ExitCode: 1},
				ModuleFilter:   tt.module,
				FunctionFilter: tt.function,
			})
			var got []string
			for _, group := range [][]types.FunctionLocation{
				res.Verification.FailedFunctions,
				res.Verification.VerifiedFunctions,
				res.Verification.UnverifiedFunctions,
			} {
				got = append(got, names(group)...)
			}
			assert.ElementsMatch(t, tt.want, got)
			assert.Equal(t, len(tt.want), res.Summary.TotalFunctions)
			// Diagnostics are reported regardless of the filter.
			assert.Equal(t, 1, res.Summary.VerificationErrors)
		})
	}
}

func TestAnalyze_FunctionsOnly(t *testing.T) {
	res := Analyze(Input{Functions: projectFunctions()})

	assert.Equal(t, types.StatusFunctionsOnly, res.Status)
	assert.Equal(t, []string{"mul", "trusted", "positive"}, names(res.Verification.Functions))
	assert.Equal(t, 3, res.Summary.TotalFunctions)
	assert.Empty(t, res.Verification.FailedFunctions)
	assert.Empty(t, res.Verification.VerifiedFunctions)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name                             string
		summary, failures, compileErrors bool
		exit                             int
		want                             types.Status
	}{
		{"summary with failures", true, true, false, 1, types.StatusVerificationFailed},
		{"summary beats compile errors", true, false, true, 1, types.StatusSuccess},
		{"clean summary", true, false, false, 0, types.StatusSuccess},
		{"compile errors", false, false, true, 1, types.StatusCompilationFailed},
		{"nonzero exit only", false, false, false, 1, types.StatusCompilationFailed},
		{"failures without summary", false, true, false, 1, types.StatusSuccess},
		{"nothing", false, false, false, 0, types.StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.summary, tt.failures, tt.compileErrors, tt.exit))
		})
	}
}
