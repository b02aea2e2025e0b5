// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package funcindex answers "which function contains this line" for
// diagnostics whose file paths only loosely match the project's.
package funcindex

import (
	"sort"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

// interval covers the half-open line range [start, stop).
type interval struct {
	start, stop int
	span        types.FunctionSpan
}

// fileIntervals holds one file's intervals sorted by start. maxLen bounds
// how far back a containing interval can start.
type fileIntervals struct {
	ivs    []interval
	maxLen int
}

func (f *fileIntervals) find(line int) (types.FunctionSpan, bool) {
	lo := sort.Search(len(f.ivs), func(i int) bool {
		return f.ivs[i].start > line-f.maxLen
	})

	best := -1
	for i := lo; i < len(f.ivs) && f.ivs[i].start <= line; i++ {
		iv := f.ivs[i]
		if line >= iv.stop {
			continue
		}
		if best < 0 || iv.stop-iv.start < f.ivs[best].stop-f.ivs[best].start {
			best = i
		}
	}
	if best < 0 {
		return types.FunctionSpan{}, false
	}
	return f.ivs[best].span, true
}

// Index maps file lines to the innermost function containing them.
type Index struct {
	files   map[string]*fileIntervals
	matcher *PathMatcher
}

// New builds an index over spans. Spans without a file are ignored.
func New(spans []types.FunctionSpan) *Index {
	byFile := make(map[string][]interval)
	for _, s := range spans {
		file := normalizePath(s.File)
		if file == "" || s.EndLine < s.StartLine {
			continue
		}
		byFile[file] = append(byFile[file], interval{start: s.StartLine, stop: s.EndLine + 1, span: s})
	}

	idx := &Index{files: make(map[string]*fileIntervals, len(byFile))}
	paths := make([]string, 0, len(byFile))
	for file, ivs := range byFile {
		sort.SliceStable(ivs, func(i, j int) bool {
			if ivs[i].start != ivs[j].start {
				return ivs[i].start < ivs[j].start
			}
			return ivs[i].stop < ivs[j].stop
		})
		fi := &fileIntervals{ivs: ivs}
		for _, iv := range ivs {
			fi.maxLen = max(fi.maxLen, iv.stop-iv.start)
		}
		idx.files[file] = fi
		paths = append(paths, file)
	}
	idx.matcher = NewPathMatcher(paths)
	return idx
}

// Find returns the smallest span containing line in the file that best
// matches file.
func (x *Index) Find(file string, line int) (types.FunctionSpan, bool) {
	matched, ok := x.matcher.Match(file)
	if !ok {
		return types.FunctionSpan{}, false
	}
	return x.files[matched].find(line)
}
