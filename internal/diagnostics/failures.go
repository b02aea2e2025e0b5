// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package diagnostics

import (
	"strconv"
	"strings"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

const (
	failureWindow     = 15
	maxAssertionLines = 10
	lookbackLines     = 10
)

// VerificationErrorKinds is the vocabulary of verification failures, in
// match priority order.
var VerificationErrorKinds = []string{
	"assertion failed",
	"postcondition not satisfied",
	"precondition not satisfied",
	"loop invariant not preserved",
	"loop invariant not satisfied on entry",
	"assertion not satisfied",
}

// Timing notes look like error context but are not errors.
var timingPhrases = []string{
	"has been running for",
	"finished in",
	"check has been running",
	"check finished in",
}

func isVerificationError(line string) bool {
	for _, kind := range VerificationErrorKinds {
		if strings.Contains(line, "error: "+kind) {
			return true
		}
	}
	return false
}

func failureKind(line string) string {
	for _, kind := range VerificationErrorKinds {
		if strings.Contains(line, kind) {
			return kind
		}
	}
	return ""
}

// ParseFailures extracts verification failures. Each failure owns up to 15
// lines of context starting at its header; the first location arrow in that
// window anchors it.
func ParseFailures(output string) []types.VerificationFailure {
	lines := splitLines(output)
	var failures []types.VerificationFailure

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		kind := failureKind(line)
		if kind == "" || !strings.Contains(strings.ToLower(line), "error") {
			continue
		}

		f := types.VerificationFailure{
			ErrorType: kind,
			Message:   stripANSI(line),
		}

		var window []string
		anchor := -1
		end := min(i+failureWindow, len(lines))
		for j := i; j < end; j++ {
			current := lines[j]
			window = append(window, current)

			if anchor < 0 {
				if m := locationRegex.FindStringSubmatch(stripANSI(current)); m != nil {
					anchor = j
					f.File = m[1]
					f.Line, _ = strconv.Atoi(m[2])
					f.Column, _ = strconv.Atoi(m[3])
				}
			}

			if anchor >= 0 && j > anchor+1 && strings.TrimSpace(current) == "" && j+1 < len(lines) {
				next := strings.TrimSpace(lines[j+1])
				if strings.HasPrefix(next, "error:") ||
					strings.HasPrefix(next, "verification results") ||
					strings.HasPrefix(next, "note:") {
					break
				}
			}
		}

		clean := make([]string, len(window))
		for k, l := range window {
			clean[k] = stripANSI(strings.TrimRight(l, " \t\r"))
		}
		f.FullErrorText = strings.TrimSpace(strings.Join(clean, "\n"))
		f.AssertionDetails = assertionDetails(clean)

		failures = append(failures, f)
	}

	return failures
}

func assertionDetails(lines []string) []string {
	details := []string{}
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		if strings.Contains(t, "assert") || strings.Contains(t, "|") || strings.HasPrefix(t, "-->") {
			details = append(details, l)
			if len(details) == maxAssertionLines {
				break
			}
		}
	}
	return details
}

// ErrorLocations returns every location arrow that belongs to an error,
// judged by the nearest error or timing note in the ten lines above it.
func ErrorLocations(output string) []types.ErrorLocation {
	lines := splitLines(output)
	var locs []types.ErrorLocation

	for i, raw := range lines {
		m := locationRegex.FindStringSubmatch(stripANSI(raw))
		if m == nil {
			continue
		}
		if !followsError(lines, i) {
			continue
		}
		line, _ := strconv.Atoi(m[2])
		locs = append(locs, types.ErrorLocation{File: m[1], Line: line})
	}
	return locs
}

func followsError(lines []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-lookbackLines; j-- {
		prev := strings.TrimSpace(stripANSI(lines[j]))
		timing := containsAny(prev, timingPhrases)

		if (strings.HasPrefix(prev, "error:") || strings.HasPrefix(prev, "error[")) && !timing {
			return true
		}
		if strings.HasPrefix(prev, "note:") && timing {
			return false
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
