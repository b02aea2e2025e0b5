// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// FunctionKind is the declared flavour of a function.
type FunctionKind string

const (
	FnPlain FunctionKind = "fn"
	FnSpec  FunctionKind = "spec fn"
	FnProof FunctionKind = "proof fn"
	FnExec  FunctionKind = "exec fn"
)

// FunctionSpan is a function located by parsing source text. StartLine
// includes attached doc comments and attributes; NameLine is the line of the
// function's identifier, which is what the indexer reports.
type FunctionSpan struct {
	File                 string       `json:"file"`
	Name                 string       `json:"name"`
	StartLine            int          `json:"start_line"`
	NameLine             int          `json:"name_line"`
	EndLine              int          `json:"end_line"`
	Kind                 FunctionKind `json:"kind"`
	Visibility           string       `json:"visibility,omitempty"`
	Context              string       `json:"context,omitempty"` // impl, trait, mod or empty
	InMacro              bool         `json:"in_macro,omitempty"`
	HasRequires          bool         `json:"has_requires"`
	HasEnsures           bool         `json:"has_ensures"`
	HasTrustedAssumption bool         `json:"has_trusted_assumption"`
}

// Verifiable reports whether the verifier checks this function: it must
// carry a contract and have a body the verifier looks at.
func (s FunctionSpan) Verifiable() bool {
	return (s.HasRequires || s.HasEnsures) && s.Kind != FnSpec
}

// Contains reports whether a 1-based line falls inside the span.
func (s FunctionSpan) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}
