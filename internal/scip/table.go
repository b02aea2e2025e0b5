// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package scip

// SymbolRef locates a symbol entry by document and position.
type SymbolRef struct {
	Doc   int // Index into Index.Documents
	Entry int // Index into Document.Symbols
}

// Table indexes the symbol entries of an Index by raw id and by file.
type Table struct {
	index  *Index
	byID   map[string][]SymbolRef
	byFile map[string][]SymbolRef
}

// NewTable builds lookup maps over every symbol entry in the index.
func NewTable(idx *Index) *Table {
	t := &Table{
		index:  idx,
		byID:   make(map[string][]SymbolRef),
		byFile: make(map[string][]SymbolRef),
	}
	for di, doc := range idx.Documents {
		for si, sym := range doc.Symbols {
			ref := SymbolRef{Doc: di, Entry: si}
			t.byID[sym.Symbol] = append(t.byID[sym.Symbol], ref)
			t.byFile[doc.RelativePath] = append(t.byFile[doc.RelativePath], ref)
		}
	}
	return t
}

// Symbol returns the entry a ref points to.
func (t *Table) Symbol(ref SymbolRef) Symbol {
	return t.index.Documents[ref.Doc].Symbols[ref.Entry]
}

// ByID returns all entries sharing a raw id, in table order.
func (t *Table) ByID(id string) []SymbolRef {
	return t.byID[id]
}

// ByFile returns all entries attached to a document path.
func (t *Table) ByFile(path string) []SymbolRef {
	return t.byFile[path]
}

// IsFunction reports whether any entry for id has a function-like kind.
func (t *Table) IsFunction(id string) bool {
	for _, ref := range t.byID[id] {
		if t.Symbol(ref).Kind.IsFunctionLike() {
			return true
		}
	}
	return false
}

// DisplayNames maps every function-like id to its display name. When an id
// has several entries the first non-empty name wins.
func (t *Table) DisplayNames() map[string]string {
	names := make(map[string]string)
	for _, doc := range t.index.Documents {
		for _, sym := range doc.Symbols {
			if !sym.Kind.IsFunctionLike() {
				continue
			}
			if prev, ok := names[sym.Symbol]; ok && prev != "unknown" {
				continue
			}
			names[sym.Symbol] = displayNameOrUnknown(sym.DisplayName)
		}
	}
	return names
}

// Paths returns the distinct document paths in index order.
func (t *Table) Paths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, doc := range t.index.Documents {
		if seen[doc.RelativePath] {
			continue
		}
		seen[doc.RelativePath] = true
		paths = append(paths, doc.RelativePath)
	}
	return paths
}

func displayNameOrUnknown(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}
