// Package natureguide implements the interactive identification-key engine
// of a nature guide: typed matrix filters and their spaces, candidate nodes,
// and the incremental propagation that keeps possibility, visibility and
// scores current while a user selects attribute values.
package natureguide

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NatureGuide is the root container: a lookup from key uuid to raw,
// uninstantiated step data.
type NatureGuide struct {
	UUID           string            `json:"uuid"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Version        json.Number       `json:"version"`
	StartNodeUUID  string            `json:"startNodeUuid"`
	IsMulticontent bool              `json:"isMulticontent"`
	Slugs          map[string]string `json:"slugs"`
	Options        GuideOptions      `json:"options"`

	Tree map[string]json.RawMessage `json:"tree"`
}

// Parse decodes a nature guide document. Steps stay raw until requested.
func Parse(data []byte) (*NatureGuide, error) {
	var g NatureGuide
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse nature guide: %w", err)
	}
	if g.Tree == nil {
		g.Tree = make(map[string]json.RawMessage)
	}
	return &g, nil
}

// KeyIDs returns the uuids of every step in the tree, sorted.
func (g *NatureGuide) KeyIDs() []string {
	ids := make([]string, 0, len(g.Tree))
	for id := range g.Tree {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Step decodes and validates the raw step with the given uuid without
// instantiating it.
func (g *NatureGuide) Step(uuid string) (StepData, error) {
	raw, ok := g.Tree[uuid]
	if !ok {
		return StepData{}, fmt.Errorf("%w: %s", ErrKeyNotFound, uuid)
	}
	var step StepData
	if err := json.Unmarshal(raw, &step); err != nil {
		return StepData{}, fmt.Errorf("%w: %s: %v", ErrInvalidStep, uuid, err)
	}
	if step.UUID == "" {
		step.UUID = uuid
	}
	if err := validate.Struct(step); err != nil {
		return StepData{}, fmt.Errorf("%w: %s: %v", ErrInvalidStep, uuid, err)
	}
	for _, fuuid := range step.MatrixFilters.Keys() {
		fd, _ := step.MatrixFilters.Get(fuuid)
		if fd.UUID == "" {
			fd.UUID = fuuid
			step.MatrixFilters.Set(fuuid, fd)
		}
		if err := validate.Struct(fd); err != nil {
			return StepData{}, fmt.Errorf("%w: %s: filter %s: %v", ErrInvalidStep, uuid, fuuid, err)
		}
	}
	return step, nil
}

// Option configures a key built by GetIdentificationKey.
type Option func(*keyOptions)

type keyOptions struct {
	logger   *slog.Logger
	mode     IdentificationMode
	handlers []keyHandler
}

type keyHandler struct {
	event KeyEvent
	fn    KeyHandler
}

// WithLogger sets the logger for benign anomalies. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *keyOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMode overrides the identification mode declared by the step.
func WithMode(mode IdentificationMode) Option {
	return func(o *keyOptions) {
		o.mode = mode
	}
}

// WithHandler registers fn before construction, so spaceInitialized can be observed.
func WithHandler(event KeyEvent, fn KeyHandler) Option {
	return func(o *keyOptions) {
		o.handlers = append(o.handlers, keyHandler{event: event, fn: fn})
	}
}

// GetIdentificationKey materialises a fresh key from the raw step. Each call
// decodes the step again, so keys never share state with each other or with
// the guide. Returns ErrKeyNotFound when uuid is not in the tree.
func (g *NatureGuide) GetIdentificationKey(uuid string, opts ...Option) (*IdentificationKey, error) {
	step, err := g.Step(uuid)
	if err != nil {
		return nil, err
	}
	return NewIdentificationKey(step, opts...)
}

// StartKey returns the key the guide starts with.
func (g *NatureGuide) StartKey(opts ...Option) (*IdentificationKey, error) {
	return g.GetIdentificationKey(g.StartNodeUUID, opts...)
}

// KeyBySlug resolves slug through the guide's slug table, falling back to
// scanning step slugs.
func (g *NatureGuide) KeyBySlug(slug string, opts ...Option) (*IdentificationKey, error) {
	if uuid, ok := g.Slugs[slug]; ok {
		if _, inTree := g.Tree[uuid]; inTree {
			return g.GetIdentificationKey(uuid, opts...)
		}
	}
	for _, id := range g.KeyIDs() {
		var head struct {
			Slug string `json:"slug"`
		}
		if err := json.Unmarshal(g.Tree[id], &head); err == nil && head.Slug == slug {
			return g.GetIdentificationKey(id, opts...)
		}
	}
	return nil, fmt.Errorf("%w: slug %s", ErrKeyNotFound, slug)
}

// Descend enters the key behind a node-typed child.
func (g *NatureGuide) Descend(n *Node, opts ...Option) (*IdentificationKey, error) {
	if n.IsResult() {
		return nil, fmt.Errorf("%w: %s", ErrNotAKey, n.UUID)
	}
	key, err := g.GetIdentificationKey(n.UUID, opts...)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotAKey, n.UUID)
	}
	return key, err
}

// NewIdentificationKey instantiates a key from decoded step data. Filters
// take their indices from the order of matrixFilters; spaces are numbered
// across filters in the same order.
func NewIdentificationKey(step StepData, opts ...Option) (*IdentificationKey, error) {
	o := keyOptions{
		logger: slog.New(slog.DiscardHandler),
		mode:   step.IdentificationMode,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mode == "" {
		o.mode = ModeFluid
	}

	k := &IdentificationKey{
		UUID:          step.UUID,
		Name:          step.Name,
		Slug:          step.Slug,
		ChildrenCount: step.ChildrenCount,
		Data:          step,
		mode:          o.mode,
		byUUID:        make(map[string]*Filter),
		byID:          make(map[string]*Space),
		logger:        o.logger.With("key", step.UUID),
	}
	for _, h := range o.handlers {
		k.emitter.On(h.event, h.fn)
	}

	for i, nd := range step.Children {
		k.nodes = append(k.nodes, newNode(k, i, nd))
	}
	if err := k.addFilters(step); err != nil {
		return nil, err
	}
	k.classifyNodes()
	k.addRestrictions()

	for _, s := range k.spaces {
		s.isPossible = s.possibleMatches > 0
	}
	k.relay()
	for _, s := range k.spaces {
		k.emitter.Emit(EventSpaceInitialized, k, SpacePayload{Index: s.Index, Space: s})
	}

	k.computeResults()
	k.done = k.computeDone()
	return k, nil
}

func (k *IdentificationKey) addFilters(step StepData) error {
	for _, uuid := range step.MatrixFilters.Keys() {
		fd, _ := step.MatrixFilters.Get(uuid)
		if fd.UUID == "" {
			fd.UUID = uuid
		}
		kd, ok := lookupKind(fd.Type)
		if !ok {
			return fmt.Errorf("%w: %q on filter %s", ErrUnknownFilterType, fd.Type, fd.UUID)
		}

		f := newFilter(k, len(k.filters), fd, kd)
		k.filters = append(k.filters, f)
		k.byUUID[f.UUID] = f

		for _, sd := range fd.Space {
			id := kd.spaceID(f.UUID, sd.SpaceIdentifier)
			if _, dup := k.byID[id]; dup {
				k.logger.Warn("duplicate space identifier", "space", id)
				continue
			}
			s := &Space{Identifier: id, Index: len(k.spaces), Data: sd, filter: f}
			if !f.addSpace(s) {
				k.logger.Debug("extra space on continuous filter ignored", "filter", f.UUID)
				continue
			}
			k.spaces = append(k.spaces, s)
			k.byID[id] = s
		}
	}
	return nil
}

// classifyNodes puts every node into exactly one of matching or mismatching
// for every space. A continuous space matches the nodes that declare an
// interval for its filter.
func (k *IdentificationKey) classifyNodes() {
	for _, s := range k.spaces {
		f := s.filter
		for _, n := range k.nodes {
			if nodeDeclares(n, f, s) {
				s.registerMatching(n)
			} else {
				s.registerMismatching(n)
			}
		}
	}
}

func nodeDeclares(n *Node, f *Filter, s *Space) bool {
	if f.kind.continuous {
		return len(n.intervals(f.UUID)) > 0
	}
	for _, ns := range n.Data.Space[f.UUID] {
		if f.kind.spaceID(f.UUID, ns.SpaceIdentifier) == s.Identifier {
			return true
		}
	}
	return false
}

// addRestrictions registers one group per restricting filter. References
// that resolve to no space are skipped; a group left empty is dropped.
func (k *IdentificationKey) addRestrictions() {
	for _, f := range k.filters {
		for _, ruuid := range f.Data.Restrictions.Keys() {
			rf := k.byUUID[ruuid]
			if rf == nil || len(rf.spaces) == 0 {
				k.logger.Warn("restriction references unknown filter", "filter", f.UUID, "restrictor", ruuid)
				continue
			}
			refs, _ := f.Data.Restrictions.Get(ruuid)
			var members []*restriction
			for _, ref := range refs {
				r := k.resolveRestriction(rf, ref)
				if r == nil {
					k.logger.Warn("restriction references unknown space",
						"filter", f.UUID, "space", ref.SpaceIdentifier)
					continue
				}
				members = append(members, r)
			}
			if len(members) == 0 {
				continue
			}
			f.addRestriction(ruuid, members)
		}
	}
}

func (k *IdentificationKey) resolveRestriction(rf *Filter, ref RestrictionData) *restriction {
	if rf.kind.continuous {
		r := &restriction{space: rf.spaces[0]}
		if iv, ok := ref.Interval(); ok {
			r.interval = &iv
		}
		return r
	}
	s := k.byID[rf.kind.spaceID(rf.UUID, ref.SpaceIdentifier)]
	if s == nil || s.filter != rf {
		return nil
	}
	return &restriction{space: s}
}
