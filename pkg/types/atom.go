// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// Atom is the reporting form of a call-graph node. Atoms are keyed by code
// name in the atoms document, so the code name is not repeated in the value.
type Atom struct {
	DisplayName  string   `json:"display-name"`
	Dependencies []string `json:"dependencies"`
	CodePath     string   `json:"code-path"`
	CodeText     CodeText `json:"code-text"`
}

// Atoms maps code names to atoms.
type Atoms map[string]Atom
