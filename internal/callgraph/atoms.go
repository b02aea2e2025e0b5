// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package callgraph

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

const (
	symbolPrefix      = "rust-analyzer cargo "
	maxCodeNameLength = 128
)

// ErrDuplicateCodeNames is returned when two functions still share a code
// name after line disambiguation.
var ErrDuplicateCodeNames = errors.New("duplicate code names")

// Duplicate lists the functions that collided on one code name.
type Duplicate struct {
	CodeName  string
	Locations []types.FunctionLocation
}

// DuplicateError carries every collision found while building atoms.
type DuplicateError struct {
	Duplicates []Duplicate
}

func (e *DuplicateError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d duplicate code name(s):", len(e.Duplicates))
	for _, d := range e.Duplicates {
		fmt.Fprintf(&sb, "\n  %s", d.CodeName)
		for _, loc := range d.Locations {
			fmt.Fprintf(&sb, "\n    at %s:%d (%s)", loc.CodePath, loc.CodeText.LinesStart, loc.DisplayName)
		}
	}
	return sb.String()
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateCodeNames }

// LineResolver refines the indexer's coarse location of a function into its
// full span. ok is false when the function could not be located.
type LineResolver interface {
	Resolve(file, name string, line int) (start, end int, ok bool)
}

var genericsRegex = regexp.MustCompile(`<[^>]*>`)

// CodeName derives a stable path-like name from a raw symbol id, e.g.
// "rust-analyzer cargo demo 0.1.0 lib/Point#norm()." becomes "lib/Point/norm".
func CodeName(symbol, displayName string) string {
	s := strings.TrimPrefix(symbol, symbolPrefix)

	// Drop the package name and version.
	if fields := strings.SplitN(s, " ", 3); len(fields) == 3 {
		s = fields[2]
	}

	s = strings.TrimRight(strings.TrimSpace(s), ".")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.NewReplacer("[", "/", "]", "/", "#", "/").Replace(s)
	s = strings.TrimRight(s, "/")
	s = strings.NewReplacer("`", "", "(", "", ")", "").Replace(s)
	s = genericsRegex.ReplaceAllString(s, "")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}

	if displayName != "" && !strings.HasSuffix(s, displayName) {
		s = s + "/" + displayName
	}
	if len(s) > maxCodeNameLength {
		cut := maxCodeNameLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

type atomDraft struct {
	node     *types.FunctionNode
	codeName string
	lines    types.CodeText
}

// BuildAtoms converts the graph into atoms keyed by code name. Nodes whose
// code names collide are suffixed with their start line. lines may be nil, in
// which case the indexer's coarse ranges are used.
func BuildAtoms(g *Graph, lines LineResolver) (types.Atoms, error) {
	drafts := make([]*atomDraft, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		drafts = append(drafts, &atomDraft{
			node:     n,
			codeName: CodeName(n.Symbol, n.DisplayName),
			lines:    NodeLines(n, lines),
		})
	}
	sort.Slice(drafts, func(i, j int) bool {
		a, b := drafts[i], drafts[j]
		if a.node.File != b.node.File {
			return a.node.File < b.node.File
		}
		if a.lines.LinesStart != b.lines.LinesStart {
			return a.lines.LinesStart < b.lines.LinesStart
		}
		if a.node.Symbol != b.node.Symbol {
			return a.node.Symbol < b.node.Symbol
		}
		return a.node.Signature < b.node.Signature
	})

	byName := make(map[string][]*atomDraft)
	for _, d := range drafts {
		byName[d.codeName] = append(byName[d.codeName], d)
	}
	for _, group := range byName {
		if len(group) < 2 {
			continue
		}
		for _, d := range group {
			d.codeName = fmt.Sprintf("%s@%d", d.codeName, d.lines.LinesStart)
		}
	}

	names := make(map[types.NodeKey]string, len(drafts))
	final := make(map[string][]*atomDraft)
	for _, d := range drafts {
		names[d.node.Key()] = d.codeName
		final[d.codeName] = append(final[d.codeName], d)
	}

	if dups := collectDuplicates(final); len(dups) > 0 {
		return nil, &DuplicateError{Duplicates: dups}
	}

	atoms := make(types.Atoms, len(drafts))
	for _, d := range drafts {
		atoms[d.codeName] = types.Atom{
			DisplayName:  d.node.DisplayName,
			Dependencies: dependencyNames(g, d.node, names),
			CodePath:     d.node.File,
			CodeText:     d.lines,
		}
	}
	return atoms, nil
}

// NodeLines returns the span reported for a node: the parsed span when the
// resolver finds one, else the indexer's range, else its start line alone.
func NodeLines(n *types.FunctionNode, lines LineResolver) types.CodeText {
	start := n.StartLine()
	if lines != nil && start > 0 {
		if s, e, ok := lines.Resolve(n.File, n.DisplayName, start); ok {
			return types.CodeText{LinesStart: s, LinesEnd: e}
		}
	}
	end := n.EndLine()
	if end < start {
		end = start
	}
	return types.CodeText{LinesStart: start, LinesEnd: end}
}

func dependencyNames(g *Graph, n *types.FunctionNode, names map[types.NodeKey]string) []string {
	deps := make([]string, 0, len(n.Callees))
	seen := make(map[string]bool)
	for callee := range n.Callees {
		for _, target := range g.ByID(callee) {
			name := names[target.Key()]
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			deps = append(deps, name)
		}
	}
	sort.Strings(deps)
	return deps
}

func collectDuplicates(final map[string][]*atomDraft) []Duplicate {
	var dups []Duplicate
	for name, group := range final {
		if len(group) < 2 {
			continue
		}
		d := Duplicate{CodeName: name}
		for _, a := range group {
			d.Locations = append(d.Locations, types.FunctionLocation{
				DisplayName: a.node.DisplayName,
				CodeName:    name,
				CodePath:    a.node.File,
				CodeText:    a.lines,
			})
		}
		dups = append(dups, d)
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i].CodeName < dups[j].CodeName })
	return dups
}
