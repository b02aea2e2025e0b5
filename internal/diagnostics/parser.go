// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package diagnostics recovers structured diagnostics from the combined
// output of cargo and the Verus verifier.
package diagnostics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

var (
	errorRegex         = regexp.MustCompile(`error(?:\[E\d+\])?: (.+)`)
	cargoErrorRegex    = regexp.MustCompile("error: could not compile `([^`]+)`")
	warningRegex       = regexp.MustCompile(`warning: (.+)`)
	locationRegex      = regexp.MustCompile(`-->\s+([^:]+):(\d+):(\d+)`)
	processErrorRegex  = regexp.MustCompile(`process didn't exit successfully: (.+)`)
	memoryErrorRegex   = regexp.MustCompile(`memory allocation of \d+ bytes failed`)
	exitStatusRegex    = regexp.MustCompile(`\(exit status: (\d+)\)`)
	verusExitRegex     = regexp.MustCompile(`Verus command completed with exit code: (\d+)`)
	summaryRegex       = regexp.MustCompile(`verification results::\s*(\d+)\s+verified,\s*(\d+)\s+errors?`)
	ansiEscapeRegex    = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	processFailureText = "process didn't exit successfully:"
)

// Diagnostics is everything recovered from one transcript.
type Diagnostics struct {
	Errors     []types.CompilationError
	Warnings   []types.CompilationError
	Failures   []types.VerificationFailure
	Locations  []types.ErrorLocation // Every location reported under an error header
	Summary    Summary
	HasSummary bool
}

// Parse runs every extraction pass over output.
func Parse(output string) Diagnostics {
	errs, warns := ParseCompilation(output)
	summary, ok := ParseSummary(output)
	return Diagnostics{
		Errors:     errs,
		Warnings:   warns,
		Failures:   ParseFailures(output),
		Locations:  ErrorLocations(output),
		Summary:    summary,
		HasSummary: ok,
	}
}

// state is the block the compilation parser is currently collecting.
type state int

const (
	stateIdle state = iota
	stateInError
	stateInWarning
)

type compilationParser struct {
	state      state
	current    types.CompilationError
	errors     []types.CompilationError
	warnings   []types.CompilationError
	hasSummary bool
}

// ParseCompilation extracts compilation errors and warnings. Lines are
// handled one at a time; at most one error or warning block is open, and
// opening a block closes the previous one.
func ParseCompilation(output string) (errors, warnings []types.CompilationError) {
	p := &compilationParser{hasSummary: HasSummary(output)}
	for _, raw := range splitLines(output) {
		p.line(strings.TrimSpace(stripANSI(raw)))
	}
	p.flush()
	return p.errors, p.warnings
}

func (p *compilationParser) open(s state, block types.CompilationError) {
	p.flush()
	p.state = s
	p.current = block
}

func (p *compilationParser) flush() {
	switch p.state {
	case stateInError:
		p.errors = append(p.errors, p.current)
	case stateInWarning:
		p.warnings = append(p.warnings, p.current)
	}
	p.state = stateIdle
	p.current = types.CompilationError{}
}

func (p *compilationParser) appendError(line, suffix string) {
	p.current.FullMessage = append(p.current.FullMessage, line)
	if suffix != "" {
		p.current.Message += suffix
	}
}

func block(message, line string) types.CompilationError {
	return types.CompilationError{Message: message, FullMessage: []string{line}}
}

func (p *compilationParser) line(line string) {
	if summaryRegex.MatchString(line) {
		return
	}

	if m := cargoErrorRegex.FindStringSubmatch(line); m != nil {
		// The crate failing to build only matters if verification never ran.
		if p.hasSummary {
			return
		}
		p.open(stateInError, block("Compilation failed for crate: "+m[1], line))
		return
	}

	if memoryErrorRegex.MatchString(line) {
		if p.state == stateInError {
			p.appendError(line, " - "+line)
			return
		}
		p.flush()
		p.errors = append(p.errors, block(line, line))
		return
	}

	if m := verusExitRegex.FindStringSubmatch(line); m != nil {
		code, _ := strconv.Atoi(m[1])
		if p.state == stateInError {
			p.appendError(line, fmt.Sprintf(" (exit code: %d)", code))
			return
		}
		p.open(stateInError, block(fmt.Sprintf("Verus command failed with exit code %d", code), line))
		return
	}

	if m := processErrorRegex.FindStringSubmatch(line); m != nil {
		if p.state == stateInError {
			p.appendError(line, " - "+m[1])
			return
		}
		p.open(stateInError, block("Process execution failed: "+m[1], line))
		return
	}

	if m := errorRegex.FindStringSubmatch(line); m != nil {
		// Verification failures are extracted by ParseFailures.
		if isVerificationError(line) {
			return
		}
		p.open(stateInError, block(strings.TrimSpace(m[1]), line))
		return
	}

	if m := warningRegex.FindStringSubmatch(line); m != nil {
		p.open(stateInWarning, block(strings.TrimSpace(m[1]), line))
		return
	}

	if m := locationRegex.FindStringSubmatch(line); m != nil {
		if p.state == stateIdle {
			return
		}
		if p.current.File == "" {
			p.current.File = m[1]
			p.current.Line, _ = strconv.Atoi(m[2])
			p.current.Column, _ = strconv.Atoi(m[3])
		}
		p.current.FullMessage = append(p.current.FullMessage, line)
		return
	}

	switch {
	case isContinuation(line):
		switch p.state {
		case stateInError:
			suffix := ""
			if strings.HasPrefix(line, "Caused by:") || strings.Contains(line, "(signal:") {
				suffix = " - " + line
			}
			if m := exitStatusRegex.FindStringSubmatch(line); m != nil {
				suffix += fmt.Sprintf(" (exit status: %s)", m[1])
			}
			p.appendError(line, suffix)
		case stateInWarning:
			p.current.FullMessage = append(p.current.FullMessage, line)
		}
	case line == "":
		p.flush()
	}
}

func isContinuation(line string) bool {
	return strings.HasPrefix(line, "|") ||
		strings.HasPrefix(line, "^") ||
		strings.HasPrefix(line, "=") ||
		strings.HasPrefix(line, "Caused by:") ||
		strings.HasPrefix(line, "(signal:") ||
		strings.Contains(line, processFailureText) ||
		exitStatusRegex.MatchString(line)
}

// Summary is the verifier's closing tally, summed over every crate that
// reported one.
type Summary struct {
	Verified int `json:"verified"`
	Errors   int `json:"errors"`
}

// HasSummary reports whether the verifier printed a results line.
func HasSummary(output string) bool {
	return summaryRegex.MatchString(stripANSI(output))
}

// ParseSummary sums every results line in output.
func ParseSummary(output string) (Summary, bool) {
	matches := summaryRegex.FindAllStringSubmatch(stripANSI(output), -1)
	if len(matches) == 0 {
		return Summary{}, false
	}
	var s Summary
	for _, m := range matches {
		verified, _ := strconv.Atoi(m[1])
		errs, _ := strconv.Atoi(m[2])
		s.Verified += verified
		s.Errors += errs
	}
	return s, true
}

func stripANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

func splitLines(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
