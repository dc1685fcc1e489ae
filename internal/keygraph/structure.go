package keygraph

import (
	"sort"
	"strings"
)

// SpaceRef names a space in a report
type SpaceRef struct {
	Index      int    `json:"index"`
	Identifier string `json:"identifier"`
	Filter     string `json:"filter"`
}

// CoverageBucket is one bucket in the per-node space coverage histogram
type CoverageBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StructureReport contains structural analysis results
type StructureReport struct {
	TotalNodes   int `json:"total_nodes"`
	TotalFilters int `json:"total_filters"`
	TotalSpaces  int `json:"total_spaces"`

	OrphanSpaces     []SpaceRef `json:"orphan_spaces"`
	UbiquitousSpaces []SpaceRef `json:"ubiquitous_spaces"`
	UnclassifiedIDs  []string   `json:"unclassified_nodes"`

	IndistinguishableGroups [][]string `json:"indistinguishable_groups"`

	RestrictedFilters     int      `json:"restricted_filters"`
	RestrictionComponents int      `json:"restriction_components"`
	LargestComponent      int      `json:"largest_component"`
	UnreachableFilters    []string `json:"unreachable_filters"`

	CoverageHistogram []CoverageBucket `json:"coverage_histogram"`
}

// ComputeStructure analyses space coverage, node separability and the
// restriction graph between filters
func ComputeStructure(snap *KeySnapshot, topN int) *StructureReport {
	r := &StructureReport{
		TotalNodes:        len(snap.Nodes),
		TotalFilters:      len(snap.Filters),
		TotalSpaces:       len(snap.Spaces),
		CoverageHistogram: defaultHistogram(),
	}

	// Orphan spaces select nothing; ubiquitous discrete spaces select everything
	for _, s := range snap.Spaces {
		ref := SpaceRef{Index: s.Index, Identifier: s.Identifier, Filter: snap.Filters[s.Filter].UUID}
		switch {
		case len(s.Matches) == 0:
			r.OrphanSpaces = append(r.OrphanSpaces, ref)
		case len(snap.Nodes) > 1 && len(s.Matches) == len(snap.Nodes) && !snap.Filters[s.Filter].Continuous:
			r.UbiquitousSpaces = append(r.UbiquitousSpaces, ref)
		}
	}
	r.OrphanSpaces = truncate(r.OrphanSpaces, topN)
	r.UbiquitousSpaces = truncate(r.UbiquitousSpaces, topN)

	// Coverage: how many spaces each node declares
	for _, n := range snap.Nodes {
		count := len(snap.NodeSpaces[n.Index])
		if count == 0 {
			r.UnclassifiedIDs = append(r.UnclassifiedIDs, n.UUID)
		}
		r.CoverageHistogram[coverageBucket(count)].Count++
	}
	sort.Strings(r.UnclassifiedIDs)
	r.UnclassifiedIDs = truncate(r.UnclassifiedIDs, topN)

	r.IndistinguishableGroups = truncate(indistinguishable(snap), topN)

	// Restriction components via UnionFind over filter uuids
	uf := NewUnionFind(snap.FilterUUIDs())
	for _, f := range snap.Filters {
		if len(f.Restrictions) > 0 {
			r.RestrictedFilters++
		}
		for _, g := range f.Restrictions {
			for _, owner := range g {
				uf.Union(f.UUID, snap.Filters[owner].UUID)
			}
		}
	}
	for _, c := range uf.Components() {
		if len(c) > 1 {
			r.RestrictionComponents++
		}
		r.LargestComponent = max(r.LargestComponent, uf.Size(c[0]))
	}

	r.UnreachableFilters = unreachable(snap)
	return r
}

// indistinguishable groups nodes whose declared spaces are identical. Such
// nodes can never be separated by any selection.
func indistinguishable(snap *KeySnapshot) [][]string {
	groups := make(map[string][]string)
	var order []string
	for _, n := range snap.Nodes {
		sig := strings.Join(n.Signature, "\x00")
		if _, ok := groups[sig]; !ok {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], n.UUID)
	}
	var out [][]string
	for _, sig := range order {
		if len(groups[sig]) > 1 {
			out = append(out, groups[sig])
		}
	}
	return out
}

// unreachable returns the filters that can never become visible: some
// restriction group only references filters that are themselves unreachable.
func unreachable(snap *KeySnapshot) []string {
	reachable := make([]bool, len(snap.Filters))
	for changed := true; changed; {
		changed = false
		for _, f := range snap.Filters {
			if reachable[f.Index] {
				continue
			}
			ok := true
			for _, g := range f.Restrictions {
				lifted := false
				for _, owner := range g {
					if owner != f.Index && reachable[owner] {
						lifted = true
						break
					}
				}
				if !lifted {
					ok = false
					break
				}
			}
			if ok {
				reachable[f.Index] = true
				changed = true
			}
		}
	}
	var out []string
	for _, f := range snap.Filters {
		if !reachable[f.Index] {
			out = append(out, f.UUID)
		}
	}
	return out
}

func truncate[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func defaultHistogram() []CoverageBucket {
	return []CoverageBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16+"},
	}
}

func coverageBucket(count int) int {
	switch {
	case count == 0:
		return 0
	case count == 1:
		return 1
	case count <= 3:
		return 2
	case count <= 7:
		return 3
	case count <= 15:
		return 4
	default:
		return 5
	}
}
