// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package callgraph

import (
	"sort"

	"github.com/petar-djukic/verus-probe/internal/scip"
)

// Definition is a defining occurrence located in the index.
type Definition struct {
	Doc        int    // Index into Index.Documents
	Occurrence int    // Index into Document.Occurrences
	Path       string // Document path
	Range      []int
}

// Line returns the 0-based line of the definition.
func (d Definition) Line() int {
	return d.Range[0]
}

// Resolver pairs a symbol entry with the occurrence that defines it.
// ordinal is the number of entries for the same raw id seen before this one,
// in table order. A false result means the entry has no definition in the
// project and belongs to an external function.
type Resolver interface {
	Resolve(id string, ordinal int) (Definition, bool)
}

// PositionalResolver pairs the n-th symbol entry of an id with the n-th
// defining occurrence of that id, ordered by (document, line). It relies on
// the indexer emitting symbol entries in source order.
type PositionalResolver struct {
	defs map[string][]Definition
}

// NewPositionalResolver groups and sorts every defining occurrence in idx.
func NewPositionalResolver(idx *scip.Index) *PositionalResolver {
	r := &PositionalResolver{defs: make(map[string][]Definition)}
	for di, doc := range idx.Documents {
		for oi, occ := range doc.Occurrences {
			if !occ.IsDefinition() {
				continue
			}
			r.defs[occ.Symbol] = append(r.defs[occ.Symbol], Definition{
				Doc:        di,
				Occurrence: oi,
				Path:       doc.RelativePath,
				Range:      occ.Range,
			})
		}
	}
	for _, list := range r.defs {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Doc != list[j].Doc {
				return list[i].Doc < list[j].Doc
			}
			return list[i].Line() < list[j].Line()
		})
	}
	return r
}

// Resolve implements Resolver.
func (r *PositionalResolver) Resolve(id string, ordinal int) (Definition, bool) {
	list := r.defs[id]
	if ordinal < 0 || ordinal >= len(list) {
		return Definition{}, false
	}
	return list[ordinal], true
}

// DefinitionCount returns how many defining occurrences id has.
func (r *PositionalResolver) DefinitionCount(id string) int {
	return len(r.defs[id])
}
