// Package keygraph analyses the structure of an identification key: which
// spaces discriminate between nodes, which nodes cannot be told apart, and
// how filter restrictions chain together.
package keygraph

import "sort"

// NodeInfo is a lightweight node representation decoupled from engine types
type NodeInfo struct {
	Index int
	UUID  string
	Name  string
	// Signature lists what the node declares, one entry per matched space.
	// Range entries carry the node's intervals.
	Signature []string
}

// FilterInfo is a lightweight filter representation
type FilterInfo struct {
	Index      int
	UUID       string
	Name       string
	Type       string
	Continuous bool
	// Restrictions holds, per restriction group, the indices of the filters
	// owning the restricting spaces.
	Restrictions [][]int
}

// SpaceInfo is a lightweight space representation
type SpaceInfo struct {
	Index      int
	Identifier string
	Filter     int
	Matches    []int // node indices
}

// KeySnapshot holds one key's structure with precomputed lookups
type KeySnapshot struct {
	UUID    string
	Name    string
	Nodes   []*NodeInfo
	Filters []*FilterInfo
	Spaces  []*SpaceInfo

	NodeSpaces map[int][]int // node -> matched spaces
}

// NewSnapshot builds a KeySnapshot from raw nodes, filters and spaces
func NewSnapshot(uuid, name string, nodes []*NodeInfo, filters []*FilterInfo, spaces []*SpaceInfo) *KeySnapshot {
	nodeSpaces := make(map[int][]int, len(nodes))
	for _, n := range nodes {
		nodeSpaces[n.Index] = nil // ensure entry exists
	}
	for _, s := range spaces {
		for _, n := range s.Matches {
			if _, ok := nodeSpaces[n]; !ok {
				continue
			}
			nodeSpaces[n] = append(nodeSpaces[n], s.Index)
		}
	}
	for n := range nodeSpaces {
		sort.Ints(nodeSpaces[n])
	}
	return &KeySnapshot{
		UUID:       uuid,
		Name:       name,
		Nodes:      nodes,
		Filters:    filters,
		Spaces:     spaces,
		NodeSpaces: nodeSpaces,
	}
}

// FilterUUIDs returns the uuids of all filters in index order
func (s *KeySnapshot) FilterUUIDs() []string {
	ids := make([]string, len(s.Filters))
	for i, f := range s.Filters {
		ids[i] = f.UUID
	}
	return ids
}
