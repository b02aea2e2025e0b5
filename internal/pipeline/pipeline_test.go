// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/verus-probe/internal/correlate"
	"github.com/petar-djukic/verus-probe/internal/scip"
	"github.com/petar-djukic/verus-probe/internal/verifier"
	"github.com/petar-djukic/verus-probe/pkg/types"
)

const fooSource = `use vstd::prelude::*;

verus! {

fn positive(x: u32) -> (r: u32)
    ensures r > 0,
{
    0
}

fn helper() -> (r: u32)
    ensures r == 1,
{
    positive(1);
    1
}

}
`

const fooIndex = `{
  "documents": [
    {
      "relative_path": "src/foo.rs",
      "occurrences": [
        {"range": [4, 3, 11], "symbol": "rust-analyzer cargo demo 0.1.0 foo/positive().", "symbol_roles": 1},
        {"range": [10, 3, 9], "symbol": "rust-analyzer cargo demo 0.1.0 foo/helper().", "symbol_roles": 1},
        {"range": [13, 4, 12], "symbol": "rust-analyzer cargo demo 0.1.0 foo/positive()."}
      ],
      "symbols": [
        {"symbol": "rust-analyzer cargo demo 0.1.0 foo/positive().", "kind": 17, "display_name": "positive"},
        {"symbol": "rust-analyzer cargo demo 0.1.0 foo/helper().", "kind": 17, "display_name": "helper"}
      ]
    }
  ]
}`

const failingTranscript = `error: postcondition not satisfied
  --> src/foo.rs:8:5
   |
8  |     0
   |     ^

verification results:: 1 verified, 1 errors
`

// fakeVerifier returns a canned transcript and records the request.
type fakeVerifier struct {
	output   string
	exitCode int
	err      error
	got      verifier.Request
}

func (f *fakeVerifier) Run(_ context.Context, req verifier.Request) (*verifier.Result, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &verifier.Result{Output: f.output, ExitCode: f.exitCode}, nil
}

// setupTestRepo writes a small crate and its symbol index and returns the
// project directory and index path.
func setupTestRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[package]\nname = \"demo\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "foo.rs"), []byte(fooSource), 0o644))

	indexPath := filepath.Join(dir, "index.scip.json")
	require.NoError(t, os.WriteFile(indexPath, []byte(fooIndex), 0o644))
	return dir, indexPath
}

func TestRunner_Atomize(t *testing.T) {
	dir, indexPath := setupTestRepo(t)
	r := NewRunner(Deps{WorkDir: dir, NoGit: true})

	res, err := r.Atomize(context.Background(), indexPath)
	require.NoError(t, err)
	require.Len(t, res.Atoms, 2)

	positive := res.Atoms["foo/positive"]
	assert.Equal(t, "positive", positive.DisplayName)
	assert.Equal(t, "src/foo.rs", positive.CodePath)
	assert.Equal(t, types.CodeText{LinesStart: 5, LinesEnd: 9}, positive.CodeText)
	assert.Empty(t, positive.Dependencies)

	helper := res.Atoms["foo/helper"]
	assert.Equal(t, []string{"foo/positive"}, helper.Dependencies)
	assert.Equal(t, types.CodeText{LinesStart: 11, LinesEnd: 16}, helper.CodeText)

	assert.Equal(t, 1, res.Spans.FilesParsed)
	assert.Equal(t, 1, res.Graph.Edges)
}

func TestRunner_AtomizeMalformedIndex(t *testing.T) {
	dir, indexPath := setupTestRepo(t)
	require.NoError(t, os.WriteFile(indexPath, []byte(`{"documents": {}}`), 0o644))

	_, err := NewRunner(Deps{WorkDir: dir, NoGit: true}).Atomize(context.Background(), indexPath)
	assert.ErrorIs(t, err, scip.ErrMalformed)
}

func TestRunner_AnalyzeWithoutTranscript(t *testing.T) {
	dir, _ := setupTestRepo(t)
	r := NewRunner(Deps{WorkDir: dir, NoGit: true, Package: "demo"})

	res, err := r.Analyze(context.Background(), AnalyzeRequest{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusFunctionsOnly, res.Status)
	assert.Equal(t, 2, res.Summary.TotalFunctions)
	require.NotNil(t, res.Provenance)
	assert.Equal(t, "demo", res.Provenance.Package)
}

func TestRunner_Verify(t *testing.T) {
	dir, _ := setupTestRepo(t)
	fake := &fakeVerifier{output: failingTranscript, exitCode: 1}
	r := NewRunner(Deps{WorkDir: dir, Package: "demo", Verifier: fake, NoGit: true})

	res, exitCode, err := r.Verify(context.Background(), VerifyRequest{Module: "foo"})
	require.NoError(t, err)
	assert.Equal(t, 1, exitCode)
	assert.Equal(t, verifier.Request{Dir: dir, Package: "demo", Module: "foo"}, fake.got)

	assert.Equal(t, types.StatusVerificationFailed, res.Status)
	require.Len(t, res.Verification.FailedFunctions, 1)
	assert.Equal(t, "positive", res.Verification.FailedFunctions[0].DisplayName)
	require.Len(t, res.Verification.VerifiedFunctions, 1)
	assert.Equal(t, "helper", res.Verification.VerifiedFunctions[0].DisplayName)
}

const signSource = `verus! {
pub fn sign(x: i64) -> (r: i64)
    ensures
        r == if x > 0 { 1 } else { 0 },
{
    let y = x;
    if y > 0 { 1 } else { 2 }
}
}
`

func TestRunner_AnalyzeFailureInBodyAfterBracedContract(t *testing.T) {
	dir, _ := setupTestRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "sign.rs"), []byte(signSource), 0o644))
	r := NewRunner(Deps{WorkDir: dir, NoGit: true})

	transcript := "error: postcondition not satisfied\n  --> src/sign.rs:7:5\n   |\n\nverification results:: 2 verified, 1 errors\n"
	res, err := r.Analyze(context.Background(), AnalyzeRequest{
		Transcript: &correlate.Transcript{Output: transcript, ExitCode: 1},
		Module:     "sign",
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusVerificationFailed, res.Status)
	require.Len(t, res.Verification.FailedFunctions, 1)
	failed := res.Verification.FailedFunctions[0]
	assert.Equal(t, "sign", failed.DisplayName)
	assert.Equal(t, types.CodeText{LinesStart: 2, LinesEnd: 8}, failed.CodeText)
	assert.Empty(t, res.Verification.VerifiedFunctions)
}

func TestRunner_VerifyToolFailure(t *testing.T) {
	dir, _ := setupTestRepo(t)
	fake := &fakeVerifier{err: verifier.ErrToolFailure}
	r := NewRunner(Deps{WorkDir: dir, Verifier: fake, NoGit: true})

	_, _, err := r.Verify(context.Background(), VerifyRequest{})
	assert.True(t, errors.Is(err, verifier.ErrToolFailure))
}

func TestRunner_VerifyWithoutVerifier(t *testing.T) {
	_, _, err := NewRunner(Deps{WorkDir: t.TempDir(), NoGit: true}).Verify(context.Background(), VerifyRequest{})
	assert.Error(t, err)
}

func TestRunner_Run(t *testing.T) {
	dir, indexPath := setupTestRepo(t)
	fake := &fakeVerifier{output: failingTranscript, exitCode: 1}
	r := NewRunner(Deps{WorkDir: dir, Verifier: fake, NoGit: true})

	res, err := r.Run(context.Background(), indexPath, VerifyRequest{})
	require.NoError(t, err)
	assert.Len(t, res.Atoms, 2)
	assert.Equal(t, 1, res.ExitCode)

	assert.Equal(t, "foo/positive", res.Analysis.Verification.FailedFunctions[0].CodeName)
	assert.Equal(t, types.ProofEntry{CodePath: "src/foo.rs", CodeLine: 5, Verified: false, Status: types.ProofFailure}, res.Proofs["foo/positive"])
	assert.Equal(t, types.ProofSuccess, res.Proofs["foo/helper"].Status)
}

func TestRunner_ProvenanceOutsideGit(t *testing.T) {
	dir, _ := setupTestRepo(t)
	r := NewRunner(Deps{WorkDir: dir})

	res, err := r.Analyze(context.Background(), AnalyzeRequest{Transcript: &correlate.Transcript{Output: "verification results:: 2 verified, 0 errors\n"}})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	require.NotNil(t, res.Provenance)
	assert.Empty(t, res.Provenance.Commit)
}
