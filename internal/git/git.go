// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package git records which revision of a project was analyzed.
package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

// ErrNoGit is returned when the working directory is not inside a git
// repository.
var ErrNoGit = errors.New("not a git repository")

// Config configures repository access.
type Config struct {
	WorkDir string // Project directory; may be below the repository root
}

// Repo wraps a go-git repository for the operations we need.
type Repo struct {
	repo *gogit.Repository
	cfg  Config
}

// Open opens the git repository containing the configured work directory.
// Returns ErrNoGit if there is none.
func Open(cfg Config) (*Repo, error) {
	r, err := gogit.PlainOpenWithOptions(cfg.WorkDir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	return &Repo{repo: r, cfg: cfg}, nil
}

// IsDirty returns true if the working tree has uncommitted changes
// (either staged or unstaged).
func (r *Repo) IsDirty() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("getting status: %w", err)
	}

	return !status.IsClean(), nil
}

// Head returns the HEAD commit hash and branch name. A repository without
// commits has an empty hash; a detached HEAD has an empty branch.
func (r *Repo) Head() (commit, branch string, err error) {
	ref, err := r.repo.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		sym, symErr := r.repo.Reference(plumbing.HEAD, false)
		if symErr != nil {
			return "", "", fmt.Errorf("reading HEAD: %w", symErr)
		}
		return "", sym.Target().Short(), nil
	case err != nil:
		return "", "", fmt.Errorf("getting HEAD: %w", err)
	}

	if ref.Name().IsBranch() {
		branch = ref.Name().Short()
	}
	return ref.Hash().String(), branch, nil
}

// Provenance describes the analyzed revision.
func (r *Repo) Provenance() (*types.Provenance, error) {
	commit, branch, err := r.Head()
	if err != nil {
		return nil, err
	}
	dirty, err := r.IsDirty()
	if err != nil {
		return nil, err
	}
	return &types.Provenance{Commit: commit, Branch: branch, Dirty: dirty}, nil
}
