// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package spans

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

func TestMap_ExactMatchOnStartOrNameLine(t *testing.T) {
	m := NewMap([]types.FunctionSpan{
		{File: "src/a.rs", Name: "f", StartLine: 10, NameLine: 12, EndLine: 20},
	})

	end, ok := m.EndLine("src/a.rs", "f", 10)
	require.True(t, ok)
	assert.Equal(t, 20, end)

	end, ok = m.EndLine("src/a.rs", "f", 12)
	require.True(t, ok)
	assert.Equal(t, 20, end)
}

func TestMap_ContainmentFallback(t *testing.T) {
	m := NewMap([]types.FunctionSpan{
		{File: "src/a.rs", Name: "f", StartLine: 10, NameLine: 12, EndLine: 20},
	})

	start, end, ok := m.Resolve("src/a.rs", "f", 15)
	require.True(t, ok)
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)

	_, ok = m.EndLine("src/a.rs", "f", 21)
	assert.False(t, ok)
	_, ok = m.EndLine("src/a.rs", "g", 15)
	assert.False(t, ok)
	_, ok = m.EndLine("src/b.rs", "f", 15)
	assert.False(t, ok)
}

func TestMap_ContainmentPrefersInnermost(t *testing.T) {
	m := NewMap([]types.FunctionSpan{
		{File: "src/a.rs", Name: "go", StartLine: 1, NameLine: 1, EndLine: 50},
		{File: "src/a.rs", Name: "go", StartLine: 20, NameLine: 20, EndLine: 30},
	})

	end, ok := m.EndLine("src/a.rs", "go", 25)
	require.True(t, ok)
	assert.Equal(t, 30, end)
}

func TestMap_SpansSortedAndFiltered(t *testing.T) {
	m := NewMap([]types.FunctionSpan{
		{File: "src/b.rs", Name: "x", StartLine: 5, EndLine: 6},
		{File: "src/a.rs", Name: "y", StartLine: 9, EndLine: 12, HasEnsures: true},
		{File: "src/a.rs", Name: "z", StartLine: 1, EndLine: 3},
	})

	spans := m.Spans()
	require.Len(t, spans, 3)
	assert.Equal(t, "z", spans[0].Name)
	assert.Equal(t, "y", spans[1].Name)
	assert.Equal(t, "x", spans[2].Name)
	assert.Equal(t, 3, m.Len())

	verifiable := m.Filter(types.FunctionSpan.Verifiable)
	require.Len(t, verifiable, 1)
	assert.Equal(t, "y", verifiable[0].Name)
}

func setupTestRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestLocateFiles_SkipsMissingFiles(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"src/lib.rs":  plainRust,
		"src/spec.rs": verusSource,
	})

	m, stats, err := NewLocator(2).LocateFiles(context.Background(), dir, []string{"src/lib.rs", "src/gone.rs", "src/spec.rs"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesParsed)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 8, stats.Functions)

	end, ok := m.EndLine("src/spec.rs", "checked", 11)
	require.True(t, ok)
	assert.Equal(t, 18, end)
}

func TestLocateFiles_ParallelismDoesNotChangeResult(t *testing.T) {
	files := map[string]string{}
	var names []string
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		rel := "src/" + n + ".rs"
		files[rel] = verusSource
		names = append(names, rel)
	}
	dir := setupTestRepo(t, files)

	serial, _, err := NewLocator(1).LocateFiles(context.Background(), dir, names)
	require.NoError(t, err)
	parallel, _, err := NewLocator(8).LocateFiles(context.Background(), dir, names)
	require.NoError(t, err)

	assert.Equal(t, serial.Spans(), parallel.Spans())
}

func TestLocateTree_WalksRustFiles(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"src/lib.rs":          plainRust,
		"target/debug/gen.rs": "fn generated() {}\n",
		"README.md":           "# readme\n",
	})

	files, err := RustFiles(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs"}, files)

	m, stats, err := NewLocator(0).LocateTree(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesParsed)
	assert.Equal(t, 4, m.Len())
}
