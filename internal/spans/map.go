// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package spans

import (
	"sort"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

type spanKey struct {
	file string
	name string
	line int
}

type nameKey struct {
	file string
	name string
}

// Map answers end-line queries for functions located by the indexer. The
// indexer reports the line of a function's name while parsed spans start at
// its first attribute or doc comment, so both lines are indexed.
type Map struct {
	spans  []types.FunctionSpan
	exact  map[spanKey]int
	byName map[nameKey][]int
}

// NewMap indexes spans. The input slice is copied and sorted.
func NewMap(spans []types.FunctionSpan) *Map {
	sorted := make([]types.FunctionSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.NameLine != b.NameLine {
			return a.NameLine < b.NameLine
		}
		return a.Name < b.Name
	})

	m := &Map{
		spans:  sorted,
		exact:  make(map[spanKey]int),
		byName: make(map[nameKey][]int),
	}
	for i, s := range sorted {
		for _, line := range []int{s.StartLine, s.NameLine} {
			k := spanKey{file: s.File, name: s.Name, line: line}
			if _, ok := m.exact[k]; !ok {
				m.exact[k] = i
			}
		}
		nk := nameKey{file: s.File, name: s.Name}
		m.byName[nk] = append(m.byName[nk], i)
	}
	return m
}

// Lookup finds the span of the function called name in file whose start or
// name line is line. Failing that, it picks the innermost span of that name
// containing line.
func (m *Map) Lookup(file, name string, line int) (types.FunctionSpan, bool) {
	if i, ok := m.exact[spanKey{file: file, name: name, line: line}]; ok {
		return m.spans[i], true
	}

	best := -1
	for _, i := range m.byName[nameKey{file: file, name: name}] {
		s := m.spans[i]
		if !s.Contains(line) {
			continue
		}
		if best < 0 || s.EndLine-s.StartLine < m.spans[best].EndLine-m.spans[best].StartLine {
			best = i
		}
	}
	if best < 0 {
		return types.FunctionSpan{}, false
	}
	return m.spans[best], true
}

// EndLine returns the end line for the function at (file, name, line).
func (m *Map) EndLine(file, name string, line int) (int, bool) {
	s, ok := m.Lookup(file, name, line)
	if !ok {
		return 0, false
	}
	return s.EndLine, true
}

// Resolve returns the full span of the function at (file, name, line).
func (m *Map) Resolve(file, name string, line int) (int, int, bool) {
	s, ok := m.Lookup(file, name, line)
	if !ok {
		return 0, 0, false
	}
	return s.StartLine, s.EndLine, true
}

// Spans returns all spans ordered by file and start line.
func (m *Map) Spans() []types.FunctionSpan {
	out := make([]types.FunctionSpan, len(m.spans))
	copy(out, m.spans)
	return out
}

// Len returns the number of spans.
func (m *Map) Len() int { return len(m.spans) }

// Filter returns the spans for which keep returns true, in Spans order.
func (m *Map) Filter(keep func(types.FunctionSpan) bool) []types.FunctionSpan {
	var out []types.FunctionSpan
	for _, s := range m.spans {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
