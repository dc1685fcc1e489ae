package natureguide

import (
	"log/slog"

	"localcosmos/keyctl/internal/events"
)

// KeyEvent is the closed set of events an IdentificationKey raises.
type KeyEvent string

const (
	EventSpaceInitialized      KeyEvent = "spaceInitialized"
	EventBeforeSpaceSelected   KeyEvent = "beforeSpaceSelected"
	EventSpaceSelected         KeyEvent = "spaceSelected"
	EventSpaceDeselected       KeyEvent = "spaceDeselected"
	EventFilterBecameVisible   KeyEvent = "filterBecameVisible"
	EventFilterBecameInvisible KeyEvent = "filterBecameInvisible"
	EventIdentificationDone    KeyEvent = "identificationKeyDone"
	EventIdentificationResult  KeyEvent = "identificationResultChanged"
)

// KeyHandler is the callback signature for key events.
type KeyHandler = events.Handler[KeyEvent, *IdentificationKey]

// SpacePayload accompanies the space events of a key. Value is set for
// continuous spaces.
type SpacePayload struct {
	Index int
	Space *Space
	Value *float64
}

// FilterPayload accompanies filter visibility events.
type FilterPayload struct {
	Index  int
	Filter *Filter
}

// DonePayload accompanies EventIdentificationDone.
type DonePayload struct {
	ResultCount int
}

// ResultPayload accompanies EventIdentificationResult. Node is nil when no
// possible node has points.
type ResultPayload struct {
	Node *Node
}

// IdentificationKey is one decision point: its filters, spaces and candidate
// nodes, plus the live selection state of a user session. It is not safe for
// concurrent use; callers serialise selection calls.
type IdentificationKey struct {
	UUID          string
	Name          string
	Slug          string
	ChildrenCount int
	Data          StepData

	mode    IdentificationMode
	nodes   []*Node
	filters []*Filter
	byUUID  map[string]*Filter
	spaces  []*Space
	byID    map[string]*Space

	results           []*Node
	impossibleResults []*Node
	done              bool

	scores scoreIndex
	leader *Node

	logger  *slog.Logger
	emitter events.Emitter[KeyEvent, *IdentificationKey]
}

// On registers a handler for a key event.
func (k *IdentificationKey) On(event KeyEvent, fn KeyHandler) events.Subscription[KeyEvent] {
	return k.emitter.On(event, fn)
}

// Off removes a handler registered with On.
func (k *IdentificationKey) Off(sub events.Subscription[KeyEvent]) bool {
	return k.emitter.Off(sub)
}

// Mode returns the identification mode.
func (k *IdentificationKey) Mode() IdentificationMode {
	return k.mode
}

// SetMode changes the identification mode.
func (k *IdentificationKey) SetMode(mode IdentificationMode) {
	k.mode = mode
}

// Nodes returns the children in declaration order.
func (k *IdentificationKey) Nodes() []*Node {
	return k.nodes
}

// Filters returns the filters in declaration order.
func (k *IdentificationKey) Filters() []*Filter {
	return k.filters
}

// Filter looks a filter up by uuid.
func (k *IdentificationKey) Filter(uuid string) *Filter {
	return k.byUUID[uuid]
}

// Spaces returns the flat space list across all filters.
func (k *IdentificationKey) Spaces() []*Space {
	return k.spaces
}

// Space returns the space at index, or nil when out of range.
func (k *IdentificationKey) Space(index int) *Space {
	if index < 0 || index >= len(k.spaces) {
		return nil
	}
	return k.spaces[index]
}

// SpaceByID looks a space up by identifier. Identifiers of continuous spaces
// may be given with or without their discriminator.
func (k *IdentificationKey) SpaceByID(identifier string) *Space {
	if s, ok := k.byID[identifier]; ok {
		return s
	}
	if f := k.byUUID[filterUUIDOf(identifier)]; f != nil && f.kind.continuous && len(f.spaces) > 0 {
		return f.spaces[0]
	}
	return nil
}

// SpaceIndex returns the flat index of the space with the same identifier, or -1.
func (k *IdentificationKey) SpaceIndex(s *Space) int {
	if s == nil {
		return -1
	}
	if found := k.SpaceByID(s.Identifier); found != nil {
		return found.Index
	}
	return -1
}

// SelectSpace selects the discrete space at index. Out-of-range indices,
// already selected spaces and spaces of hidden filters are left untouched.
// Returns whether the selection changed.
func (k *IdentificationKey) SelectSpace(index int) bool {
	s := k.Space(index)
	if s == nil {
		return false
	}
	k.emitter.Emit(EventBeforeSpaceSelected, k, SpacePayload{Index: index, Space: s})
	if s.filter.kind.continuous {
		k.logger.Warn("continuous space selected without a value", "space", s.Identifier)
		return false
	}
	changed := s.selectDiscrete()
	k.settle()
	return changed
}

// SelectNumber applies value to the continuous space at index. For discrete
// spaces the value is ignored and the space is toggled on.
func (k *IdentificationKey) SelectNumber(index int, value float64) bool {
	s := k.Space(index)
	if s == nil {
		return false
	}
	k.emitter.Emit(EventBeforeSpaceSelected, k, SpacePayload{Index: index, Space: s, Value: &value})
	var changed bool
	if s.filter.kind.continuous {
		changed = s.selectValue(value)
	} else {
		k.logger.Warn("value ignored for discrete space", "space", s.Identifier, "value", value)
		changed = s.selectDiscrete()
	}
	k.settle()
	return changed
}

// DeselectSpace deselects the space at index. Deselecting an unselected space is a no-op.
func (k *IdentificationKey) DeselectSpace(index int) bool {
	s := k.Space(index)
	if s == nil {
		return false
	}
	changed := s.deselect()
	k.settle()
	return changed
}

// SelectSpaceByID selects a discrete space by identifier.
func (k *IdentificationKey) SelectSpaceByID(identifier string) bool {
	s := k.SpaceByID(identifier)
	if s == nil {
		k.logger.Warn("space not found", "space", identifier)
		return false
	}
	return k.SelectSpace(s.Index)
}

// DeselectSpaceByID deselects a space by identifier.
func (k *IdentificationKey) DeselectSpaceByID(identifier string) bool {
	s := k.SpaceByID(identifier)
	if s == nil {
		k.logger.Warn("space not found", "space", identifier)
		return false
	}
	return k.DeselectSpace(s.Index)
}

// Reset deselects every selected space.
func (k *IdentificationKey) Reset() {
	for _, s := range k.spaces {
		s.deselect()
	}
	k.settle()
}

// IsSpaceSelected reports whether the key's space with the same identifier is selected.
func (k *IdentificationKey) IsSpaceSelected(s *Space) bool {
	i := k.SpaceIndex(s)
	return i >= 0 && k.spaces[i].isSelected
}

// IsSpacePossible reports whether the key's space with the same identifier is possible.
func (k *IdentificationKey) IsSpacePossible(s *Space) bool {
	i := k.SpaceIndex(s)
	return i >= 0 && k.spaces[i].isPossible
}

// IsFilterVisible reports whether the key's filter with the same uuid is visible.
func (k *IdentificationKey) IsFilterVisible(f *Filter) bool {
	if f == nil {
		return false
	}
	own := k.byUUID[f.UUID]
	return own != nil && own.isVisible
}

// IsDone reports whether every visible filter is resolved: it has a selection
// or no possible space left.
func (k *IdentificationKey) IsDone() bool {
	return k.done
}

// Leader returns the possible node with the most points, ties going to the
// earliest node. Nil when no possible node has points.
func (k *IdentificationKey) Leader() *Node {
	return k.leader
}

// Results returns the possible nodes by descending normalised score.
func (k *IdentificationKey) Results() []*Node {
	return k.results
}

// ImpossibleResults returns the ruled out nodes by descending normalised score.
func (k *IdentificationKey) ImpossibleResults() []*Node {
	return k.impossibleResults
}

// Points maps node uuid to points.
func (k *IdentificationKey) Points() map[string]int {
	out := make(map[string]int, len(k.nodes))
	for _, n := range k.nodes {
		out[n.UUID] = n.points
	}
	return out
}

// PossibleNodes returns one flag per node.
func (k *IdentificationKey) PossibleNodes() []bool {
	out := make([]bool, len(k.nodes))
	for i, n := range k.nodes {
		out[i] = n.isPossible
	}
	return out
}

// PossibleSpaces returns one flag per space.
func (k *IdentificationKey) PossibleSpaces() []bool {
	out := make([]bool, len(k.spaces))
	for i, s := range k.spaces {
		out[i] = s.isPossible
	}
	return out
}

// SelectedSpaces returns one flag per space.
func (k *IdentificationKey) SelectedSpaces() []bool {
	out := make([]bool, len(k.spaces))
	for i, s := range k.spaces {
		out[i] = s.isSelected
	}
	return out
}

// VisibleFilters returns one flag per filter.
func (k *IdentificationKey) VisibleFilters() []bool {
	out := make([]bool, len(k.filters))
	for i, f := range k.filters {
		out[i] = f.isVisible
	}
	return out
}

// FilterVisibilityRestrictions returns, per filter, one group of space
// indices per restricting filter. A filter is visible when every group has
// a satisfied member.
func (k *IdentificationKey) FilterVisibilityRestrictions() [][][]int {
	out := make([][][]int, len(k.filters))
	for i, f := range k.filters {
		groups := make([][]int, 0, len(f.groups))
		for _, g := range f.groups {
			idx := make([]int, 0, len(g.members))
			for _, m := range g.members {
				idx = append(idx, m.space.Index)
			}
			groups = append(groups, idx)
		}
		out[i] = groups
	}
	return out
}

// settle refreshes the derived views after a top-level operation. The done
// event fires on the transition into the done state only.
func (k *IdentificationKey) settle() {
	k.computeResults()

	var leader *Node
	if i, ok := k.scores.top(); ok {
		leader = k.nodes[i]
	}
	if leader != k.leader {
		k.leader = leader
		k.emitter.Emit(EventIdentificationResult, k, ResultPayload{Node: leader})
	}

	done := k.computeDone()
	if done && !k.done {
		k.done = true
		k.emitter.Emit(EventIdentificationDone, k, DonePayload{ResultCount: len(k.results)})
		return
	}
	k.done = done
}

func (k *IdentificationKey) computeDone() bool {
	for _, f := range k.filters {
		if !f.isVisible {
			continue
		}
		if !f.HasSelection() && f.HasPossibleSpace() {
			return false
		}
	}
	return true
}

// reindex keeps the score index current after a node's points or
// possibility changed.
func (k *IdentificationKey) reindex(n *Node) {
	if n.indexed {
		k.scores.remove(n.indexedPoints, n.Index)
		n.indexed = false
	}
	if n.isPossible && n.points > 0 {
		k.scores.insert(n.points, n.Index)
		n.indexed = true
		n.indexedPoints = n.points
	}
}

// relay re-emits entity events as key events.
func (k *IdentificationKey) relay() {
	for _, s := range k.spaces {
		s.On(SpaceSelected, func(_ SpaceEvent, s *Space, payload any) {
			p := SpacePayload{Index: s.Index, Space: s}
			if v, ok := payload.(float64); ok {
				p.Value = &v
			}
			k.emitter.Emit(EventSpaceSelected, k, p)
		})
		s.On(SpaceDeselected, func(_ SpaceEvent, s *Space, _ any) {
			k.emitter.Emit(EventSpaceDeselected, k, SpacePayload{Index: s.Index, Space: s})
		})
	}
	for _, f := range k.filters {
		f.On(FilterBecameVisible, func(_ FilterEvent, f *Filter, _ any) {
			k.emitter.Emit(EventFilterBecameVisible, k, FilterPayload{Index: f.Index, Filter: f})
		})
		f.On(FilterBecameInvisible, func(_ FilterEvent, f *Filter, _ any) {
			k.emitter.Emit(EventFilterBecameInvisible, k, FilterPayload{Index: f.Index, Filter: f})
		})
	}
}
