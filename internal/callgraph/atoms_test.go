// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package callgraph

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/verus-probe/internal/scip"
	"github.com/petar-djukic/verus-probe/pkg/types"
)

func TestCodeName(t *testing.T) {
	tests := []struct {
		symbol  string
		display string
		want    string
	}{
		{"rust-analyzer cargo demo 0.1.0 lib/add().", "add", "lib/add"},
		{"rust-analyzer cargo demo 0.1.0 lib/Point#norm().", "norm", "lib/Point/norm"},
		{"rust-analyzer cargo curve25519-dalek 4.1.3 backend/serial/u64/field/FieldElement51#reduce().", "reduce", "backend/serial/u64/field/FieldElement51/reduce"},
		{"rust-analyzer cargo demo 0.1.0 ops/impl#[Point][Add<Point>]add().", "add", "ops/impl/Point/Add/add"},
		{"rust-analyzer cargo my-crate 0.1.0 lib/`r#type`().", "type", "lib/r/type"},
		{"rust-analyzer cargo demo 0.1.0 lib/macro!", "other", "lib/macro!/other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeName(tt.symbol, tt.display))
		})
	}
}

func TestCodeName_Truncated(t *testing.T) {
	long := "rust-analyzer cargo demo 0.1.0 "
	for i := 0; i < 40; i++ {
		long += "segment/"
	}
	long += "f()."
	assert.Len(t, CodeName(long, "f"), maxCodeNameLength)
}

func TestCodeName_TruncatedOnRuneBoundary(t *testing.T) {
	// 127 ASCII bytes put the 128-byte limit inside the two-byte é.
	symbol := "rust-analyzer cargo demo 0.1.0 " + strings.Repeat("a", 127) + "é/f()."
	got := CodeName(symbol, "f")
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 127), got)
}

type stubLines map[string][2]int

func (s stubLines) Resolve(file, name string, line int) (int, int, bool) {
	v, ok := s[name]
	return v[0], v[1], ok
}

func TestBuildAtoms_DependenciesAndLines(t *testing.T) {
	idx := &scip.Index{Documents: []scip.Document{{
		RelativePath: "src/ops.rs",
		Occurrences: []scip.Occurrence{
			def(0, addID),
			ref(2, 4, helperID),
			ref(3, 4, extID),
			def(10, helperID),
		},
		Symbols: []scip.Symbol{
			fn(addID, "add", "fn add()"),
			fn(helperID, "helper", "fn helper()"),
			fn(extID, "max", "fn max()"),
		},
	}}}
	g, _ := Build(idx)

	atoms, err := BuildAtoms(g, stubLines{"add": {1, 8}})
	require.NoError(t, err)
	require.Len(t, atoms, 2)

	add := atoms["ops/add"]
	assert.Equal(t, "add", add.DisplayName)
	assert.Equal(t, "src/ops.rs", add.CodePath)
	assert.Equal(t, types.CodeText{LinesStart: 1, LinesEnd: 8}, add.CodeText)
	assert.Equal(t, []string{"ops/helper"}, add.Dependencies)

	// Not located by the resolver: falls back to the indexer range.
	helper := atoms["ops/helper"]
	assert.Equal(t, types.CodeText{LinesStart: 11, LinesEnd: 11}, helper.CodeText)
	assert.Empty(t, helper.Dependencies)
}

func TestBuildAtoms_CollidingNamesGetLineSuffix(t *testing.T) {
	idx := &scip.Index{Documents: []scip.Document{{
		RelativePath: "src/ops.rs",
		Occurrences:  []scip.Occurrence{def(9, mulID), def(19, mulID), def(30, addID), ref(31, 4, mulID)},
		Symbols: []scip.Symbol{
			fn(mulID, "mul", "fn mul(self, rhs: A) -> B"),
			fn(mulID, "mul", "fn mul(self, rhs: B) -> A"),
			fn(addID, "add", "fn add()"),
		},
	}}}
	g, _ := Build(idx)

	atoms, err := BuildAtoms(g, nil)
	require.NoError(t, err)
	assert.Contains(t, atoms, "ops/Mul/mul@10")
	assert.Contains(t, atoms, "ops/Mul/mul@20")
	assert.Equal(t, []string{"ops/Mul/mul@10", "ops/Mul/mul@20"}, atoms["ops/add"].Dependencies)
}

func TestBuildAtoms_UnresolvableDuplicates(t *testing.T) {
	g := &Graph{
		Nodes:        make(map[types.NodeKey]*types.FunctionNode),
		DisplayNames: map[string]string{},
		byID:         make(map[string][]types.NodeKey),
	}
	for _, sig := range []string{"a", "b"} {
		n := &types.FunctionNode{Symbol: mulID, DisplayName: "mul", Signature: sig, File: "src/ops.rs", Range: []int{4, 0, 9}}
		g.Nodes[n.Key()] = n
		g.byID[mulID] = append(g.byID[mulID], n.Key())
	}

	_, err := BuildAtoms(g, nil)
	require.ErrorIs(t, err, ErrDuplicateCodeNames)

	var dupErr *DuplicateError
	require.ErrorAs(t, err, &dupErr)
	require.Len(t, dupErr.Duplicates, 1)
	assert.Equal(t, "ops/Mul/mul@5", dupErr.Duplicates[0].CodeName)
	assert.Len(t, dupErr.Duplicates[0].Locations, 2)
}
