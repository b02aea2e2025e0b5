// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scip loads the JSON form of a SCIP index produced by the
// verus-analyzer indexer.
package scip

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"fortio.org/safecast"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

// RoleDefinition is the symbol_roles bit marking a defining occurrence.
const RoleDefinition = 1

// ErrMalformed is returned when the index does not match the expected shape.
// A malformed index is never partially loaded.
var ErrMalformed = errors.New("malformed symbol index")

// Index is a decoded symbol index. Document order is preserved because the
// call-graph builder depends on it.
type Index struct {
	Documents []Document
}

// Document holds the occurrences and symbols of one source file.
type Document struct {
	RelativePath string // Project-relative, leading slash removed
	Occurrences  []Occurrence
	Symbols      []Symbol
}

// Occurrence is a single appearance of a symbol in a document.
type Occurrence struct {
	Range  []int // [line, startCol, endLine, endCol] or [line, startCol, endCol], 0-based
	Symbol string
	Roles  int
}

// IsDefinition reports whether the occurrence defines its symbol.
func (o Occurrence) IsDefinition() bool {
	return o.Roles&RoleDefinition != 0
}

// Line returns the 0-based start line.
func (o Occurrence) Line() int { return o.Range[0] }

// Column returns the 0-based start column.
func (o Occurrence) Column() int { return o.Range[1] }

// Symbol is a symbol information entry attached to a document.
type Symbol struct {
	Symbol          string
	Kind            types.SymbolKind
	DisplayName     string
	Signature       string
	EnclosingSymbol string
}

type rawIndex struct {
	Documents []rawDocument `json:"documents"`
}

type rawDocument struct {
	RelativePath string          `json:"relative_path"`
	Occurrences  []rawOccurrence `json:"occurrences"`
	Symbols      []rawSymbol     `json:"symbols"`
}

type rawOccurrence struct {
	Range       []int64 `json:"range"`
	Symbol      string  `json:"symbol"`
	SymbolRoles *int64  `json:"symbol_roles,omitempty"`
}

type rawSymbol struct {
	Symbol                 string  `json:"symbol"`
	Kind                   int64   `json:"kind"`
	DisplayName            *string `json:"display_name,omitempty"`
	SignatureDocumentation *struct {
		Text string `json:"text"`
	} `json:"signature_documentation,omitempty"`
	EnclosingSymbol *string `json:"enclosing_symbol,omitempty"`
}

// Load reads and decodes the index file at path.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening symbol index: %w", err)
	}
	defer f.Close()

	idx, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// Decode validates the JSON document read from r and converts it to an Index.
func Decode(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading symbol index: %w", err)
	}

	if err := validate(data); err != nil {
		return nil, err
	}

	var raw rawIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	idx := &Index{Documents: make([]Document, 0, len(raw.Documents))}
	for di, rd := range raw.Documents {
		doc := Document{
			RelativePath: strings.TrimLeft(rd.RelativePath, "/"),
			Occurrences:  make([]Occurrence, 0, len(rd.Occurrences)),
			Symbols:      make([]Symbol, 0, len(rd.Symbols)),
		}

		for oi, ro := range rd.Occurrences {
			occ, err := convertOccurrence(ro)
			if err != nil {
				return nil, fmt.Errorf("%w: documents[%d].occurrences[%d]: %v", ErrMalformed, di, oi, err)
			}
			doc.Occurrences = append(doc.Occurrences, occ)
		}

		for si, rs := range rd.Symbols {
			kind, err := safecast.Conv[int](rs.Kind)
			if err != nil {
				return nil, fmt.Errorf("%w: documents[%d].symbols[%d].kind: %v", ErrMalformed, di, si, err)
			}
			sym := Symbol{Symbol: rs.Symbol, Kind: types.SymbolKind(kind)}
			if rs.DisplayName != nil {
				sym.DisplayName = *rs.DisplayName
			}
			if rs.SignatureDocumentation != nil {
				sym.Signature = rs.SignatureDocumentation.Text
			}
			if rs.EnclosingSymbol != nil {
				sym.EnclosingSymbol = *rs.EnclosingSymbol
			}
			doc.Symbols = append(doc.Symbols, sym)
		}

		idx.Documents = append(idx.Documents, doc)
	}

	return idx, nil
}

func convertOccurrence(ro rawOccurrence) (Occurrence, error) {
	occ := Occurrence{Symbol: ro.Symbol, Range: make([]int, len(ro.Range))}
	for i, v := range ro.Range {
		n, err := safecast.Conv[int](v)
		if err != nil {
			return Occurrence{}, fmt.Errorf("range[%d]: %w", i, err)
		}
		occ.Range[i] = n
	}
	if ro.SymbolRoles != nil {
		roles, err := safecast.Conv[int](*ro.SymbolRoles)
		if err != nil {
			return Occurrence{}, fmt.Errorf("symbol_roles: %w", err)
		}
		occ.Roles = roles
	}
	return occ, nil
}

const schemaURL = "verus-probe://scip-index.json"

const indexSchema = `{
  "type": "object",
  "required": ["documents"],
  "properties": {
    "documents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["relative_path"],
        "properties": {
          "relative_path": {"type": "string"},
          "occurrences": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["range", "symbol"],
              "properties": {
                "range": {
                  "type": "array",
                  "minItems": 3,
                  "maxItems": 4,
                  "items": {"type": "integer", "minimum": 0}
                },
                "symbol": {"type": "string"},
                "symbol_roles": {"type": "integer"}
              }
            }
          },
          "symbols": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["symbol", "kind"],
              "properties": {
                "symbol": {"type": "string"},
                "kind": {"type": "integer"},
                "display_name": {"type": ["string", "null"]},
                "signature_documentation": {
                  "type": ["object", "null"],
                  "properties": {"text": {"type": "string"}}
                },
                "enclosing_symbol": {"type": ["string", "null"]}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(indexSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// validate checks the raw document against the index schema.
func validate(data []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compiling index schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
