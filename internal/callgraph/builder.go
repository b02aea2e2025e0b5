// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package callgraph builds the function call graph from a symbol index and
// derives the atoms reported for it.
package callgraph

import (
	"log/slog"
	"sort"

	"github.com/petar-djukic/verus-probe/internal/scip"
	"github.com/petar-djukic/verus-probe/pkg/types"
)

// Graph is the call graph of project-owned functions.
type Graph struct {
	Nodes        map[types.NodeKey]*types.FunctionNode
	DisplayNames map[string]string // Every function-like raw id, external ones included
	byID         map[string][]types.NodeKey
}

// ByID returns the nodes that share a raw symbol id, ordered by file and line.
func (g *Graph) ByID(id string) []*types.FunctionNode {
	keys := g.byID[id]
	nodes := make([]*types.FunctionNode, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, g.Nodes[k])
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].File != nodes[j].File {
			return nodes[i].File < nodes[j].File
		}
		return nodes[i].StartLine() < nodes[j].StartLine()
	})
	return nodes
}

// first returns the earliest node for id, or nil when id has none.
func (g *Graph) first(id string) *types.FunctionNode {
	if nodes := g.ByID(id); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// Files returns the distinct files that own at least one node, sorted.
func (g *Graph) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, n := range g.Nodes {
		if n.File == "" || seen[n.File] {
			continue
		}
		seen[n.File] = true
		files = append(files, n.File)
	}
	sort.Strings(files)
	return files
}

// BuildStats tracks what the builder skipped or could not reconcile.
type BuildStats struct {
	SymbolEntries     int // Function-like symbol entries seen
	Nodes             int // Project-owned nodes created
	External          int // Entries without a paired definition
	DuplicateKeys     int // Entries whose (id, signature) was already taken
	PairingMismatches int // Ids whose entry count differs from their definition count
	Edges             int // Caller to raw callee pairs recorded
}

// definitionCounter is implemented by resolvers that can report how many
// definitions exist for an id.
type definitionCounter interface {
	DefinitionCount(id string) int
}

// Build constructs the call graph using positional pairing.
func Build(idx *scip.Index) (*Graph, BuildStats) {
	return BuildWithResolver(idx, NewPositionalResolver(idx))
}

// BuildWithResolver constructs the call graph, pairing symbol entries with
// definitions through r.
func BuildWithResolver(idx *scip.Index, r Resolver) (*Graph, BuildStats) {
	table := scip.NewTable(idx)
	g := &Graph{
		Nodes:        make(map[types.NodeKey]*types.FunctionNode),
		DisplayNames: table.DisplayNames(),
		byID:         make(map[string][]types.NodeKey),
	}
	var stats BuildStats

	type defPos struct{ doc, occ int }
	owners := make(map[defPos]types.NodeKey)
	seen := make(map[string]int)

	// Pair every function-like symbol entry with a definition.
	for _, doc := range idx.Documents {
		for _, sym := range doc.Symbols {
			if !sym.Kind.IsFunctionLike() {
				continue
			}
			stats.SymbolEntries++

			ordinal := seen[sym.Symbol]
			seen[sym.Symbol]++

			def, ok := r.Resolve(sym.Symbol, ordinal)
			if !ok {
				stats.External++
				continue
			}

			key := types.NodeKey{Symbol: sym.Symbol, Signature: sym.Signature}
			if _, exists := g.Nodes[key]; exists {
				stats.DuplicateKeys++
				slog.Debug("duplicate function key", "symbol", sym.Symbol, "file", def.Path, "line", def.Line()+1)
				owners[defPos{doc: def.Doc, occ: def.Occurrence}] = key
				continue
			}

			g.Nodes[key] = &types.FunctionNode{
				Symbol:      sym.Symbol,
				DisplayName: g.DisplayNames[sym.Symbol],
				Signature:   sym.Signature,
				Kind:        sym.Kind,
				File:        def.Path,
				Callees:     make(map[string]bool),
				Range:       def.Range,
			}
			g.byID[sym.Symbol] = append(g.byID[sym.Symbol], key)
			owners[defPos{doc: def.Doc, occ: def.Occurrence}] = key
		}
	}
	stats.Nodes = len(g.Nodes)

	if counter, ok := r.(definitionCounter); ok {
		stats.PairingMismatches = validatePairing(seen, counter)
	}

	// Attribute references to the enclosing function, in source order.
	for di, doc := range idx.Documents {
		order := make([]int, len(doc.Occurrences))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			oa, ob := doc.Occurrences[order[a]], doc.Occurrences[order[b]]
			if oa.Line() != ob.Line() {
				return oa.Line() < ob.Line()
			}
			return oa.Column() < ob.Column()
		})

		var current *types.FunctionNode
		for _, oi := range order {
			occ := doc.Occurrences[oi]
			isFunc := table.IsFunction(occ.Symbol)

			if occ.IsDefinition() {
				if key, ok := owners[defPos{doc: di, occ: oi}]; ok {
					current = g.Nodes[key]
				} else if isFunc {
					current = g.first(occ.Symbol)
				}
				continue
			}

			if !isFunc || current == nil || occ.Symbol == current.Symbol {
				continue
			}
			if !current.Callees[occ.Symbol] {
				current.Callees[occ.Symbol] = true
				stats.Edges++
			}
		}
	}

	slog.Debug("call graph built",
		"nodes", stats.Nodes,
		"external", stats.External,
		"duplicates", stats.DuplicateKeys,
		"edges", stats.Edges,
	)
	return g, stats
}

// validatePairing compares, per id, how many symbol entries were seen with
// how many definitions exist. Ids without any definition are external and
// are not counted.
func validatePairing(seen map[string]int, counter definitionCounter) int {
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	mismatches := 0
	for _, id := range ids {
		defs := counter.DefinitionCount(id)
		if defs == 0 || defs == seen[id] {
			continue
		}
		mismatches++
		slog.Warn("symbol entries and definitions differ; positional pairing may be wrong",
			"symbol", id, "entries", seen[id], "definitions", defs)
	}
	return mismatches
}
