// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package spans locates exact function boundaries by parsing Rust and Verus
// source text with tree-sitter, and reconciles them with the indexer's
// coarse locations.
package spans

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

// Stats tracks parsing statistics.
type Stats struct {
	FilesParsed  int
	FilesSkipped int
	Functions    int
}

// Locator parses source files into function spans.
type Locator struct {
	workers int
}

// NewLocator creates a Locator that parses at most workers files at once.
// A non-positive value uses the number of CPUs.
func NewLocator(workers int) *Locator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Locator{workers: workers}
}

type fileResult struct {
	spans []types.FunctionSpan
	ok    bool
}

// LocateFiles parses the given project-relative files under root. Files that
// cannot be read or parsed are logged and skipped. The returned map does not
// depend on the order in which files finished parsing.
func (l *Locator) LocateFiles(ctx context.Context, root string, files []string) (*Map, Stats, error) {
	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				slog.Warn("skipping unreadable source file", "file", rel, "error", err)
				return nil
			}
			spans, err := ParseSource(gctx, rel, content)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("skipping unparseable source file", "file", rel, "error", err)
				return nil
			}
			results[i] = fileResult{spans: spans, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	var all []types.FunctionSpan
	for _, r := range results {
		if !r.ok {
			stats.FilesSkipped++
			continue
		}
		stats.FilesParsed++
		all = append(all, r.spans...)
	}
	stats.Functions = len(all)

	slog.Debug("located function spans", "files", stats.FilesParsed, "skipped", stats.FilesSkipped, "functions", stats.Functions)
	return NewMap(all), stats, nil
}

// LocateTree parses every Rust file below root.
func (l *Locator) LocateTree(ctx context.Context, root string) (*Map, Stats, error) {
	files, err := RustFiles(ctx, root)
	if err != nil {
		return nil, Stats{}, err
	}
	return l.LocateFiles(ctx, root, files)
}

// RustFiles returns the project-relative, slash-separated paths of all .rs
// files below root, sorted. Build output and VCS directories are skipped.
func RustFiles(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we cannot stat.
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			base := d.Name()
			if path != root && (base == "target" || base == ".git" || base == "node_modules" || strings.HasPrefix(base, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".rs" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}
