// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared types used across verus-probe packages.
package types

// SymbolKind is the numeric kind code the indexer assigns to a symbol.
type SymbolKind int

// Function-like kind codes. Everything else is ignored by the call graph.
const (
	KindMethod      SymbolKind = 6
	KindFunction    SymbolKind = 17
	KindConstructor SymbolKind = 26
	KindMacro       SymbolKind = 80 // some verus functions are indexed as macros
)

// IsFunctionLike reports whether symbols of this kind become call-graph nodes.
func (k SymbolKind) IsFunctionLike() bool {
	switch k {
	case KindMethod, KindFunction, KindConstructor, KindMacro:
		return true
	default:
		return false
	}
}

// String returns the human-readable name of the symbol kind.
func (k SymbolKind) String() string {
	switch k {
	case KindMethod:
		return "Method"
	case KindFunction:
		return "Function"
	case KindConstructor:
		return "Constructor"
	case KindMacro:
		return "Macro"
	default:
		return "Unknown"
	}
}

// NodeKey uniquely identifies a function node. The raw symbol id alone is
// not unique: the indexer may emit the same id for trait impls on different
// types, which only differ by signature.
type NodeKey struct {
	Symbol    string
	Signature string
}

// FunctionNode is a project-owned function in the call graph.
type FunctionNode struct {
	Symbol      string          // Raw symbol id
	DisplayName string          // Short name ("unknown" when the indexer gave none)
	Signature   string          // Signature text used for disambiguation
	Kind        SymbolKind      // Indexer kind code
	File        string          // Project-relative path of the defining file
	Callees     map[string]bool // Raw callee symbol ids, not disambiguated
	Range       []int           // 0-based indexer range of the defining occurrence
}

// Key returns the node's uniqueness key.
func (n *FunctionNode) Key() NodeKey {
	return NodeKey{Symbol: n.Symbol, Signature: n.Signature}
}

// StartLine returns the 1-based line of the defining occurrence, or 0 when
// no range is known.
func (n *FunctionNode) StartLine() int {
	if len(n.Range) == 0 {
		return 0
	}
	return n.Range[0] + 1
}

// EndLine returns the 1-based end line of the indexer's coarse range.
func (n *FunctionNode) EndLine() int {
	switch len(n.Range) {
	case 0:
		return 0
	case 3:
		return n.Range[0] + 1
	default:
		return n.Range[2] + 1
	}
}
