// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// Status is the overall outcome of an analysis run.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusVerificationFailed Status = "verification_failed"
	StatusCompilationFailed  Status = "compilation_failed"
	StatusFunctionsOnly      Status = "functions_only"
)

// CodeText is a 1-based inclusive line span.
type CodeText struct {
	LinesStart int `json:"lines-start"`
	LinesEnd   int `json:"lines-end"`
}

// FunctionLocation identifies a function in the report. CodeName is only set
// once the result has been enriched from atoms.
type FunctionLocation struct {
	DisplayName string   `json:"display-name"`
	CodeName    string   `json:"code-name,omitempty"`
	CodePath    string   `json:"code-path"`
	CodeText    CodeText `json:"code-text"`
}

// Summary holds the report counters.
type Summary struct {
	TotalFunctions      int `json:"total_functions"`
	FailedFunctions     int `json:"failed_functions"`
	VerifiedFunctions   int `json:"verified_functions"`
	UnverifiedFunctions int `json:"unverified_functions"`
	VerificationErrors  int `json:"verification_errors"`
	CompilationErrors   int `json:"compilation_errors"`
	CompilationWarnings int `json:"compilation_warnings"`
}

// VerificationSection partitions the verifiable functions. Unverified
// functions passed but rely on assume or admit. Functions is only set when
// no transcript was analyzed and nothing could be partitioned.
type VerificationSection struct {
	Functions           []FunctionLocation    `json:"functions,omitempty"`
	FailedFunctions     []FunctionLocation    `json:"failed_functions"`
	VerifiedFunctions   []FunctionLocation    `json:"verified_functions"`
	UnverifiedFunctions []FunctionLocation    `json:"unverified_functions"`
	Errors              []VerificationFailure `json:"errors"`
}

// CompilationSection lists build diagnostics.
type CompilationSection struct {
	Errors   []CompilationError `json:"errors"`
	Warnings []CompilationError `json:"warnings"`
}

// Provenance records where the analyzed sources came from.
type Provenance struct {
	Commit  string `json:"commit,omitempty"`
	Branch  string `json:"branch,omitempty"`
	Dirty   bool   `json:"dirty"`
	Package string `json:"package,omitempty"`
}

// AnalysisResult is the final per-run report. It is not modified after the
// correlator returns it, except for code-name enrichment.
type AnalysisResult struct {
	Status       Status              `json:"status"`
	Summary      Summary             `json:"summary"`
	Verification VerificationSection `json:"verification"`
	Compilation  CompilationSection  `json:"compilation"`
	Provenance   *Provenance         `json:"provenance,omitempty"`
}

// ProofStatus is the per-function status in the code-name keyed proofs view.
type ProofStatus string

const (
	ProofSuccess ProofStatus = "success"
	ProofFailure ProofStatus = "failure"
	ProofSorries ProofStatus = "sorries"
)

// ProofEntry is one value of the proofs view.
type ProofEntry struct {
	CodePath string      `json:"code-path"`
	CodeLine int         `json:"code-line"`
	Verified bool        `json:"verified"`
	Status   ProofStatus `json:"status"`
}
