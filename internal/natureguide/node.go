package natureguide

import (
	"math"

	"localcosmos/keyctl/internal/events"
)

// NodeEvent is the closed set of events a Node raises.
type NodeEvent string

const (
	NodePossible      NodeEvent = "NodePossible"
	NodeImpossible    NodeEvent = "NodeImpossible"
	NodePointsChanged NodeEvent = "NodePointsChanged"
)

// Node is a candidate outcome of an identification key.
type Node struct {
	UUID      string
	Name      string
	Slug      string
	NodeType  NodeType
	MaxPoints int
	Index     int
	Data      NodeData

	step *IdentificationKey

	isPossible bool
	points     int

	matchingSpaces    []*Space
	mismatchingSpaces []*Space

	// selected spaces this node currently matches / contradicts
	matches    map[*Space]struct{}
	mismatches map[*Space]struct{}

	// position in the key's score index
	indexed       bool
	indexedPoints int

	emitter events.Emitter[NodeEvent, *Node]
}

func newNode(step *IdentificationKey, index int, data NodeData) *Node {
	return &Node{
		UUID:       data.UUID,
		Name:       data.Name,
		Slug:       data.Slug,
		NodeType:   data.NodeType,
		MaxPoints:  data.MaxPoints,
		Index:      index,
		Data:       data,
		step:       step,
		isPossible: true,
		matches:    make(map[*Space]struct{}),
		mismatches: make(map[*Space]struct{}),
	}
}

// On registers a handler for a node event.
func (n *Node) On(event NodeEvent, fn events.Handler[NodeEvent, *Node]) events.Subscription[NodeEvent] {
	return n.emitter.On(event, fn)
}

// Off removes a handler registered with On.
func (n *Node) Off(sub events.Subscription[NodeEvent]) bool {
	return n.emitter.Off(sub)
}

// IsPossible reports whether no selected space contradicts the node.
func (n *Node) IsPossible() bool {
	return n.isPossible
}

// Points is the summed weight of the selected spaces the node matches.
func (n *Node) Points() int {
	return n.points
}

// Score is Points normalised by MaxPoints; zero when MaxPoints is not positive.
func (n *Node) Score() float64 {
	if n.MaxPoints <= 0 {
		return 0
	}
	return float64(n.points) / float64(n.MaxPoints)
}

// IsResult reports whether the node is a final result rather than a sub-key.
func (n *Node) IsResult() bool {
	return n.NodeType == NodeTypeResult
}

// MatchingSpaces returns the spaces the node was classified as matching.
func (n *Node) MatchingSpaces() []*Space {
	return n.matchingSpaces
}

// Mismatches returns the number of selected spaces contradicting the node.
func (n *Node) Mismatches() int {
	return len(n.mismatches)
}

func (n *Node) addMatch(s *Space) {
	if _, ok := n.matches[s]; ok {
		return
	}
	n.matches[s] = struct{}{}
	n.setPoints(n.points + s.filter.Weight)
}

func (n *Node) removeMatch(s *Space) {
	if _, ok := n.matches[s]; !ok {
		return
	}
	delete(n.matches, s)
	n.setPoints(max(0, n.points-s.filter.Weight))
}

// addMismatch records a contradicting selection. A single mismatch from any
// filter is enough to rule the node out.
func (n *Node) addMismatch(s *Space) {
	if _, ok := n.mismatches[s]; ok {
		return
	}
	n.mismatches[s] = struct{}{}
	if len(n.mismatches) == 1 {
		n.setPossible(false)
	}
}

func (n *Node) removeMismatch(s *Space) {
	if _, ok := n.mismatches[s]; !ok {
		return
	}
	delete(n.mismatches, s)
	if len(n.mismatches) == 0 {
		n.setPossible(true)
	}
}

func (n *Node) setPossible(possible bool) {
	if n.isPossible == possible {
		return
	}
	n.isPossible = possible
	for _, s := range n.matchingSpaces {
		s.matchingNodeChanged(possible)
	}
	n.step.reindex(n)
	if possible {
		n.emitter.Emit(NodePossible, n, nil)
	} else {
		n.emitter.Emit(NodeImpossible, n, nil)
	}
}

func (n *Node) setPoints(points int) {
	if points == n.points {
		return
	}
	old := n.points
	n.points = points
	n.step.reindex(n)
	n.emitter.Emit(NodePointsChanged, n, old)
}

// intervals returns the node's declared ranges for a continuous filter.
func (n *Node) intervals(filterUUID string) [][2]float64 {
	var out [][2]float64
	for _, ns := range n.Data.Space[filterUUID] {
		if iv, ok := ns.Interval(); ok {
			out = append(out, iv)
		}
	}
	return out
}

// inRange reports whether v falls inside any of the node's intervals for f,
// each widened by the filter's tolerance. Bounds are inclusive.
func (n *Node) inRange(f *Filter, v float64) bool {
	for _, iv := range n.intervals(f.UUID) {
		lo, hi := widen(iv, f.tolerance)
		if v >= lo && v <= hi {
			return true
		}
	}
	return false
}

// widen moves each bound outwards by tolerance percent of its own magnitude.
func widen(iv [2]float64, tolerance float64) (float64, float64) {
	if tolerance <= 0 {
		return iv[0], iv[1]
	}
	return iv[0] - math.Abs(iv[0])*tolerance/100, iv[1] + math.Abs(iv[1])*tolerance/100
}
