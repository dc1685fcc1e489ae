package keygraph

import (
	"fmt"
	"sort"

	"localcosmos/keyctl/internal/natureguide"
)

// FromKey snapshots the structure of an instantiated key. Selection state
// is ignored.
func FromKey(k *natureguide.IdentificationKey) *KeySnapshot {
	nodes := make([]*NodeInfo, 0, len(k.Nodes()))
	for _, n := range k.Nodes() {
		nodes = append(nodes, &NodeInfo{Index: n.Index, UUID: n.UUID, Name: n.Name})
	}

	filters := make([]*FilterInfo, 0, len(k.Filters()))
	for _, f := range k.Filters() {
		filters = append(filters, &FilterInfo{
			Index:      f.Index,
			UUID:       f.UUID,
			Name:       f.Name,
			Type:       string(f.Type),
			Continuous: f.IsContinuous(),
		})
	}
	for i, groups := range k.FilterVisibilityRestrictions() {
		for _, g := range groups {
			owners := make([]int, 0, len(g))
			for _, si := range g {
				owners = append(owners, k.Space(si).Filter().Index)
			}
			filters[i].Restrictions = append(filters[i].Restrictions, owners)
		}
	}

	spaces := make([]*SpaceInfo, 0, len(k.Spaces()))
	for _, s := range k.Spaces() {
		info := &SpaceInfo{Index: s.Index, Identifier: s.Identifier, Filter: s.Filter().Index}
		for _, n := range s.MatchingNodes() {
			info.Matches = append(info.Matches, n.Index)
			sig := s.Identifier
			if s.Filter().IsContinuous() {
				sig = fmt.Sprintf("%s=%v", s.Identifier, rangesOf(n, s.Filter().UUID))
			}
			nodes[n.Index].Signature = append(nodes[n.Index].Signature, sig)
		}
	}
	for _, n := range nodes {
		sort.Strings(n.Signature)
	}

	return NewSnapshot(k.UUID, k.Name, nodes, filters, spaces)
}

func rangesOf(n *natureguide.Node, filterUUID string) [][2]float64 {
	var out [][2]float64
	for _, ns := range n.Data.Space[filterUUID] {
		if iv, ok := ns.Interval(); ok {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
