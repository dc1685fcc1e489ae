package natureguide

import (
	"localcosmos/keyctl/internal/events"
)

// SpaceEvent is the closed set of events a Space raises.
type SpaceEvent string

const (
	SpaceSelected   SpaceEvent = "SpaceSelected"
	SpaceDeselected SpaceEvent = "SpaceDeselected"
	SpacePossible   SpaceEvent = "SpacePossible"
	SpaceImpossible SpaceEvent = "SpaceImpossible"
)

// Space is a single selectable attribute value of a filter.
type Space struct {
	Identifier string
	// Index is the position in the key's flat, order-stable space list.
	Index int
	Data  SpaceData

	filter *Filter

	isSelected bool
	isPossible bool
	value      float64

	// matching and mismatching partition the node universe. For continuous
	// spaces matching holds the nodes that carry an interval at all.
	matching        []*Node
	mismatching     []*Node
	possibleMatches int

	restricts []*Filter

	emitter events.Emitter[SpaceEvent, *Space]
}

// On registers a handler for a space event.
func (s *Space) On(event SpaceEvent, fn events.Handler[SpaceEvent, *Space]) events.Subscription[SpaceEvent] {
	return s.emitter.On(event, fn)
}

// Off removes a handler registered with On.
func (s *Space) Off(sub events.Subscription[SpaceEvent]) bool {
	return s.emitter.Off(sub)
}

// Filter returns the owning filter.
func (s *Space) Filter() *Filter {
	return s.filter
}

// IsSelected reports whether the space is selected.
func (s *Space) IsSelected() bool {
	return s.isSelected
}

// IsPossible reports whether the space is selected or still matches a possible node.
func (s *Space) IsPossible() bool {
	return s.isPossible
}

// Value returns the applied value of a selected continuous space.
func (s *Space) Value() (float64, bool) {
	if !s.filter.kind.continuous || !s.isSelected {
		return 0, false
	}
	return s.value, true
}

// MatchingNodes returns the nodes classified as matching at construction.
func (s *Space) MatchingNodes() []*Node {
	return s.matching
}

// MismatchingNodes returns the complement of MatchingNodes.
func (s *Space) MismatchingNodes() []*Node {
	return s.mismatching
}

// Restricts returns the filters whose visibility this space gates.
func (s *Space) Restricts() []*Filter {
	return s.restricts
}

func (s *Space) registerMatching(n *Node) {
	s.matching = append(s.matching, n)
	n.matchingSpaces = append(n.matchingSpaces, s)
	if n.isPossible {
		s.possibleMatches++
	}
}

func (s *Space) registerMismatching(n *Node) {
	s.mismatching = append(s.mismatching, n)
	n.mismatchingSpaces = append(n.mismatchingSpaces, s)
}

func (s *Space) registerRestricted(f *Filter) {
	for _, r := range s.restricts {
		if r == f {
			return
		}
	}
	s.restricts = append(s.restricts, f)
}

// selectDiscrete toggles a discrete space on. Returns false when nothing changed.
func (s *Space) selectDiscrete() bool {
	if s.isSelected || !s.filter.isVisible {
		return false
	}
	s.filter.onSelectSpace(s)
	if !s.filter.isVisible {
		return false
	}

	s.isSelected = true
	for _, n := range s.matching {
		n.addMatch(s)
	}
	for _, n := range s.mismatching {
		n.addMismatch(s)
	}
	s.refreshPossibility()
	s.emitter.Emit(SpaceSelected, s, nil)
	s.notifyRestricted()
	return true
}

// selectValue applies v to a continuous space and re-decides every node
// against v from scratch.
func (s *Space) selectValue(v float64) bool {
	if !s.filter.isVisible || (s.isSelected && s.value == v) {
		return false
	}
	s.filter.onSelectSpace(s)

	s.isSelected = true
	s.value = v
	for _, n := range s.filter.key.nodes {
		if n.inRange(s.filter, v) {
			n.removeMismatch(s)
			n.addMatch(s)
		} else {
			n.addMismatch(s)
			n.removeMatch(s)
		}
	}
	s.refreshPossibility()
	s.emitter.Emit(SpaceSelected, s, v)
	s.notifyRestricted()
	return true
}

// deselect clears the selection. Returns false when the space was not selected.
func (s *Space) deselect() bool {
	if !s.isSelected {
		return false
	}
	s.isSelected = false

	if s.filter.kind.continuous {
		for _, n := range s.filter.key.nodes {
			n.removeMatch(s)
			n.removeMismatch(s)
		}
		s.value = 0
	} else {
		for _, n := range s.matching {
			n.removeMatch(s)
		}
		for _, n := range s.mismatching {
			n.removeMismatch(s)
		}
	}
	s.refreshPossibility()
	s.emitter.Emit(SpaceDeselected, s, nil)
	s.filter.onDeselectSpace(s)
	s.notifyRestricted()
	return true
}

func (s *Space) notifyRestricted() {
	for _, f := range s.restricts {
		f.restrictionChanged(s)
	}
}

// matchingNodeChanged is called by a matching node whose possibility flipped.
func (s *Space) matchingNodeChanged(possible bool) {
	if possible {
		s.possibleMatches++
	} else {
		s.possibleMatches--
	}
	s.refreshPossibility()
}

func (s *Space) refreshPossibility() {
	possible := s.isSelected || s.possibleMatches > 0
	if possible == s.isPossible {
		return
	}
	s.isPossible = possible
	if possible {
		s.emitter.Emit(SpacePossible, s, nil)
	} else {
		s.emitter.Emit(SpaceImpossible, s, nil)
	}
}
