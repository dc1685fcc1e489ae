package natureguide

import (
	"encoding/json"

	"localcosmos/keyctl/internal/events"
)

// FilterEvent is the closed set of events a Filter raises.
type FilterEvent string

const (
	FilterBecameVisible   FilterEvent = "MatrixFilterBecameVisible"
	FilterBecameInvisible FilterEvent = "MatrixFilterBecameInvisible"
)

// restriction is one space of another filter that can lift a visibility
// restriction. interval is only set for continuous restrictors.
type restriction struct {
	space    *Space
	interval *[2]float64
}

func (r *restriction) satisfied() bool {
	return r.space.filter.kind.satisfies(r.space, r)
}

// restrictionGroup collects the restrictions declared against one restricting
// filter. Any satisfied member lifts the group.
type restrictionGroup struct {
	restrictor string
	members    []*restriction
	satisfied  map[*restriction]struct{}
}

// Filter is one identification criterion grouping its spaces.
type Filter struct {
	UUID                string
	Name                string
	Type                FilterType
	Weight              int
	AllowMultipleValues bool
	Index               int
	Data                FilterData

	kind      kind
	key       *IdentificationKey
	spaces    []*Space
	groups    []*restrictionGroup
	isVisible bool
	tolerance float64
	emitter   events.Emitter[FilterEvent, *Filter]
}

func newFilter(key *IdentificationKey, index int, data FilterData, k kind) *Filter {
	f := &Filter{
		UUID:                data.UUID,
		Name:                data.Name,
		Type:                data.Type,
		Weight:              data.Weight,
		AllowMultipleValues: data.AllowMultipleValues,
		Index:               index,
		Data:                data,
		kind:                k,
		key:                 key,
		isVisible:           true,
	}
	if k.continuous && len(data.Definition) > 0 {
		var def RangeDefinition
		if err := json.Unmarshal(data.Definition, &def); err == nil && def.Tolerance != nil {
			f.tolerance = *def.Tolerance
		}
	}
	return f
}

// On registers a handler for a filter event.
func (f *Filter) On(event FilterEvent, fn events.Handler[FilterEvent, *Filter]) events.Subscription[FilterEvent] {
	return f.emitter.On(event, fn)
}

// Off removes a handler registered with On.
func (f *Filter) Off(sub events.Subscription[FilterEvent]) bool {
	return f.emitter.Off(sub)
}

// Spaces returns the filter's spaces in declaration order.
func (f *Filter) Spaces() []*Space {
	return f.spaces
}

// SelectedSpaces returns the currently selected spaces.
func (f *Filter) SelectedSpaces() []*Space {
	var out []*Space
	for _, s := range f.spaces {
		if s.isSelected {
			out = append(out, s)
		}
	}
	return out
}

// HasSelection reports whether any space of the filter is selected.
func (f *Filter) HasSelection() bool {
	for _, s := range f.spaces {
		if s.isSelected {
			return true
		}
	}
	return false
}

// HasPossibleSpace reports whether any space of the filter is possible.
func (f *Filter) HasPossibleSpace() bool {
	for _, s := range f.spaces {
		if s.isPossible {
			return true
		}
	}
	return false
}

// IsVisible reports whether all visibility restrictions are lifted.
func (f *Filter) IsVisible() bool {
	return f.isVisible
}

// IsRestricted reports whether the filter declares any restriction.
func (f *Filter) IsRestricted() bool {
	return f.Data.Restrictions.Len() > 0
}

// IsContinuous reports whether the filter is selected by value.
func (f *Filter) IsContinuous() bool {
	return f.kind.continuous
}

// Tolerance is the percentage by which node intervals are widened.
func (f *Filter) Tolerance() float64 {
	return f.tolerance
}

// Value returns the last applied value of a continuous filter.
func (f *Filter) Value() (float64, bool) {
	if !f.kind.continuous || len(f.spaces) == 0 || !f.spaces[0].isSelected {
		return 0, false
	}
	return f.spaces[0].value, true
}

// ActiveRestrictions returns the restricting spaces of every group that is
// still unsatisfied. A non-empty result means the filter is hidden.
func (f *Filter) ActiveRestrictions() []*Space {
	var out []*Space
	for _, g := range f.groups {
		if len(g.satisfied) > 0 {
			continue
		}
		for _, m := range g.members {
			out = append(out, m.space)
		}
	}
	return out
}

// addSpace registers a space. Continuous filters hold a single space; any
// further space is ignored.
func (f *Filter) addSpace(s *Space) bool {
	if f.kind.continuous && len(f.spaces) > 0 {
		return false
	}
	f.spaces = append(f.spaces, s)
	return true
}

// addRestriction registers a group of restricting spaces declared against
// the filter owned by restrictor.
func (f *Filter) addRestriction(restrictor string, members []*restriction) {
	g := &restrictionGroup{
		restrictor: restrictor,
		members:    members,
		satisfied:  make(map[*restriction]struct{}),
	}
	for _, m := range members {
		if m.satisfied() {
			g.satisfied[m] = struct{}{}
		}
		m.space.registerRestricted(f)
	}
	f.groups = append(f.groups, g)
	f.isVisible = f.restrictionsLifted()
}

func (f *Filter) restrictionsLifted() bool {
	for _, g := range f.groups {
		if len(g.satisfied) == 0 {
			return false
		}
	}
	return true
}

// onSelectSpace enforces single-select exclusivity before s becomes selected.
func (f *Filter) onSelectSpace(s *Space) {
	if f.AllowMultipleValues {
		return
	}
	for _, other := range f.spaces {
		if other != s && other.isSelected {
			other.deselect()
		}
	}
}

// onDeselectSpace re-evaluates every space once the filter has no selection left.
func (f *Filter) onDeselectSpace(_ *Space) {
	if f.HasSelection() {
		return
	}
	for _, s := range f.spaces {
		s.refreshPossibility()
	}
}

// restrictionChanged re-checks the restrictions s takes part in.
func (f *Filter) restrictionChanged(s *Space) {
	for _, g := range f.groups {
		for _, m := range g.members {
			if m.space != s {
				continue
			}
			if m.satisfied() {
				g.satisfied[m] = struct{}{}
			} else if _, ok := g.satisfied[m]; ok {
				delete(g.satisfied, m)
			} else {
				f.key.logger.Debug("restriction already active",
					"filter", f.UUID, "space", s.Identifier)
			}
		}
	}

	switch lifted := f.restrictionsLifted(); {
	case lifted && !f.isVisible:
		f.makeVisible()
	case !lifted && f.isVisible:
		f.makeInvisible()
	}
}

func (f *Filter) makeVisible() {
	f.isVisible = true
	f.emitter.Emit(FilterBecameVisible, f, nil)
}

// makeInvisible hides the filter and clears its selection.
func (f *Filter) makeInvisible() {
	f.isVisible = false
	for _, s := range f.spaces {
		s.deselect()
	}
	f.emitter.Emit(FilterBecameInvisible, f, nil)
}
