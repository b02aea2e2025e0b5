// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package correlate

import (
	"sort"
	"strings"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

// LineTolerance is how far apart the reported start line of a function and
// its atom may be and still be considered the same function.
const LineTolerance = 5

type atomRef struct {
	codeName string
	atom     types.Atom
}

// EnrichWithCodeNames fills in CodeName on every function of result that
// can be matched to an atom. It returns how many functions were enriched.
func EnrichWithCodeNames(result *types.AnalysisResult, atoms types.Atoms) int {
	if result == nil || len(atoms) == 0 {
		return 0
	}

	byName := make(map[string][]atomRef)
	for codeName, a := range atoms {
		byName[a.DisplayName] = append(byName[a.DisplayName], atomRef{codeName: codeName, atom: a})
	}
	for _, refs := range byName {
		sort.Slice(refs, func(i, j int) bool { return refs[i].codeName < refs[j].codeName })
	}

	n := 0
	enrich := func(locs []types.FunctionLocation) {
		for i := range locs {
			if name, ok := matchAtom(locs[i], byName[locs[i].DisplayName]); ok {
				locs[i].CodeName = name
				n++
			}
		}
	}
	enrich(result.Verification.Functions)
	enrich(result.Verification.FailedFunctions)
	enrich(result.Verification.VerifiedFunctions)
	enrich(result.Verification.UnverifiedFunctions)
	return n
}

// matchAtom picks the candidate whose path matches and whose start line is
// closest, within LineTolerance.
func matchAtom(loc types.FunctionLocation, candidates []atomRef) (string, bool) {
	best, bestDiff := "", LineTolerance+1
	for _, c := range candidates {
		if !pathsMatch(loc.CodePath, c.atom.CodePath) {
			continue
		}
		diff := loc.CodeText.LinesStart - c.atom.CodeText.LinesStart
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = c.codeName, diff
			if diff == 0 {
				break
			}
		}
	}
	return best, best != ""
}

// pathsMatch compares two project paths that may be rooted differently,
// first by suffix and then by the part from src/ onward.
func pathsMatch(a, b string) bool {
	a, b = strings.TrimLeft(a, "/"), strings.TrimLeft(b, "/")
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.HasSuffix(a, "/"+b) || strings.HasSuffix(b, "/"+a) {
		return true
	}
	sa, sb := srcSuffix(a), srcSuffix(b)
	return sa != "" && sa == sb
}

func srcSuffix(p string) string {
	if strings.HasPrefix(p, "src/") {
		return p
	}
	if i := strings.LastIndex(p, "/src/"); i >= 0 {
		return p[i+1:]
	}
	return ""
}

// Proofs renders an enriched result as a map keyed by code name. Functions
// without a code name are left out.
func Proofs(result *types.AnalysisResult) map[string]types.ProofEntry {
	out := make(map[string]types.ProofEntry)
	if result == nil {
		return out
	}
	add := func(locs []types.FunctionLocation, verified bool, status types.ProofStatus) {
		for _, l := range locs {
			if l.CodeName == "" {
				continue
			}
			out[l.CodeName] = types.ProofEntry{
				CodePath: l.CodePath,
				CodeLine: l.CodeText.LinesStart,
				Verified: verified,
				Status:   status,
			}
		}
	}
	add(result.Verification.VerifiedFunctions, true, types.ProofSuccess)
	add(result.Verification.UnverifiedFunctions, false, types.ProofSorries)
	add(result.Verification.FailedFunctions, false, types.ProofFailure)
	return out
}
