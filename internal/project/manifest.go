// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package project reads the Cargo manifest of the project being analyzed.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the Cargo manifest file name.
const ManifestName = "Cargo.toml"

// ErrNotCargoProject is returned when no Cargo.toml is found.
var ErrNotCargoProject = errors.New("not a cargo project")

// Manifest is the subset of Cargo.toml the probe needs.
type Manifest struct {
	Path    string   // Absolute path of Cargo.toml
	Root    string   // Directory containing Cargo.toml
	Package string   // [package].name, empty for a virtual workspace
	Members []string // [workspace].members
}

// IsWorkspace reports whether the manifest declares workspace members.
func (m *Manifest) IsWorkspace() bool {
	return len(m.Members) > 0
}

type cargoConfig struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// Load reads root/Cargo.toml.
func Load(root string) (*Manifest, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	path := filepath.Join(abs, ManifestName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no %s in %s", ErrNotCargoProject, ManifestName, abs)
		}
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	var cfg cargoConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") && !meta.IsDefined("workspace") {
		return nil, fmt.Errorf("%w: %s has neither [package] nor [workspace]", ErrNotCargoProject, path)
	}
	if meta.IsDefined("package") && strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, fmt.Errorf("%s: missing [package].name", path)
	}

	return &Manifest{
		Path:    path,
		Root:    abs,
		Package: strings.TrimSpace(cfg.Package.Name),
		Members: cfg.Workspace.Members,
	}, nil
}

// Find walks up from startDir to the nearest directory holding Cargo.toml
// and loads it.
func Find(startDir string) (*Manifest, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(dir)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, fmt.Errorf("%w: no %s above %s", ErrNotCargoProject, ManifestName, startDir)
}
