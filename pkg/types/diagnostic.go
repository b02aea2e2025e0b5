// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import "fmt"

// CompilationError is an error or warning block recovered from build output.
// Line and Column are 1-based; zero means the block carried no location.
type CompilationError struct {
	Message     string   `json:"message"`
	File        string   `json:"file,omitempty"`
	Line        int      `json:"line,omitempty"`
	Column      int      `json:"column,omitempty"`
	FullMessage []string `json:"full_message"`
}

// HasLocation reports whether the diagnostic points at a source line.
func (e CompilationError) HasLocation() bool {
	return e.File != "" && e.Line > 0
}

func (e CompilationError) String() string {
	switch {
	case !e.HasLocation():
		return e.Message
	case e.Column > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	default:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
}

// VerificationFailure is a failed proof obligation reported by the verifier.
type VerificationFailure struct {
	ErrorType        string   `json:"error_type"`
	File             string   `json:"file,omitempty"`
	Line             int      `json:"line,omitempty"`
	Column           int      `json:"column,omitempty"`
	Message          string   `json:"message"`
	AssertionDetails []string `json:"assertion_details"`
	FullErrorText    string   `json:"full_error_text"`
}

// HasLocation reports whether the failure points at a source line.
func (f VerificationFailure) HasLocation() bool {
	return f.File != "" && f.Line > 0
}

// ErrorLocation is a file/line pair at which the verifier reported an error.
type ErrorLocation struct {
	File string
	Line int
}
