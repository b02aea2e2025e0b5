// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package funcindex

import (
	"path"
	"sort"
	"strings"
)

// PathMatcher resolves the file paths printed by the verifier, which may be
// absolute or relative to a different directory, to the project-relative
// paths the index knows about.
type PathMatcher struct {
	known []string
}

// NewPathMatcher creates a matcher over the given project paths.
func NewPathMatcher(paths []string) *PathMatcher {
	known := make([]string, 0, len(paths))
	seen := make(map[string]bool)
	for _, p := range paths {
		p = normalizePath(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		known = append(known, p)
	}
	sort.Strings(known)
	return &PathMatcher{known: known}
}

// Match returns the known path that best matches query. An exact match wins,
// then a suffix match in either direction on a path separator boundary, then
// a match on file name alone. Within a class the longest shared suffix wins,
// then lexical order.
func (m *PathMatcher) Match(query string) (string, bool) {
	q := normalizePath(query)
	if q == "" {
		return "", false
	}

	for _, k := range m.known {
		if k == q {
			return k, true
		}
	}

	if best, ok := m.bestBy(q, func(k string) bool {
		return strings.HasSuffix(k, "/"+q) || strings.HasSuffix(q, "/"+k)
	}); ok {
		return best, true
	}

	base := path.Base(q)
	return m.bestBy(q, func(k string) bool { return path.Base(k) == base })
}

func (m *PathMatcher) bestBy(q string, match func(string) bool) (string, bool) {
	best, bestScore := "", -1
	for _, k := range m.known {
		if !match(k) {
			continue
		}
		// known is sorted, so ties keep the lexically smallest path.
		if score := commonSuffixSegments(k, q); score > bestScore {
			best, bestScore = k, score
		}
	}
	return best, bestScore >= 0
}

func commonSuffixSegments(a, b string) int {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	n := 0
	for i, j := len(as)-1, len(bs)-1; i >= 0 && j >= 0 && as[i] == bs[j]; i, j = i-1, j-1 {
		n++
	}
	return n
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}
