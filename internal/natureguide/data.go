package natureguide

import (
	"encoding/json"
)

// NodeType distinguishes children that lead to a further key from final results.
type NodeType string

const (
	NodeTypeNode   NodeType = "node"
	NodeTypeResult NodeType = "result"
)

// IdentificationMode is carried per key. Only fluid mode changes ranking
// today; strict is kept so consumers can round-trip the setting.
type IdentificationMode string

const (
	ModeFluid  IdentificationMode = "fluid"
	ModeStrict IdentificationMode = "strict"
)

// ResultAction names the feature a final result links to.
type ResultAction struct {
	Feature string `json:"feature"`
	UUID    string `json:"uuid"`
}

// GuideOptions holds the per-guide options block.
type GuideOptions struct {
	ResultAction *ResultAction `json:"resultAction,omitempty"`
	Version      string        `json:"version,omitempty"`
}

// SpaceData is one raw space entry of a filter.
type SpaceData struct {
	SpaceIdentifier   string          `json:"spaceIdentifier" validate:"required"`
	EncodedSpace      json.RawMessage `json:"encodedSpace"`
	HTML              string          `json:"html,omitempty"`
	ImageURL          json.RawMessage `json:"imageUrl,omitempty"`
	SecondaryImageURL json.RawMessage `json:"secondaryImageUrl,omitempty"`
	ShortName         string          `json:"shortName,omitempty"`
	Latname           string          `json:"latname,omitempty"`
	IsCustom          bool            `json:"isCustom,omitempty"`
	ColorType         string          `json:"colorType,omitempty"`
	Gradient          bool            `json:"gradient,omitempty"`
	Description       *string         `json:"description,omitempty"`
}

// RestrictionData references a space of another filter that gates visibility.
type RestrictionData struct {
	SpaceIdentifier string          `json:"spaceIdentifier"`
	EncodedSpace    json.RawMessage `json:"encodedSpace"`
}

// RangeDefinition is the definition block of a RangeFilter.
type RangeDefinition struct {
	Min         *float64 `json:"min"`
	Max         *float64 `json:"max"`
	Step        *float64 `json:"step"`
	Tolerance   *float64 `json:"tolerance"`
	Unit        *string  `json:"unit"`
	UnitVerbose *string  `json:"unitVerbose"`
}

// FilterData is the raw definition of one matrix filter.
type FilterData struct {
	UUID                string                        `json:"uuid" validate:"required"`
	Name                string                        `json:"name"`
	Type                FilterType                    `json:"type" validate:"required"`
	Position            int                           `json:"position"`
	Description         *string                       `json:"description"`
	Weight              int                           `json:"weight" validate:"gte=0"`
	AllowMultipleValues bool                          `json:"allowMultipleValues"`
	IsRestricted        bool                          `json:"isRestricted"`
	Restrictions        OrderedMap[[]RestrictionData] `json:"restrictions"`
	Definition          json.RawMessage               `json:"definition,omitempty"`
	Space               []SpaceData                   `json:"space" validate:"dive"`
}

// NodeSpaceData is a node's own value for one filter.
type NodeSpaceData struct {
	SpaceIdentifier string          `json:"spaceIdentifier"`
	EncodedSpace    json.RawMessage `json:"encodedSpace"`
}

// NodeData is one raw child of a step.
type NodeData struct {
	UUID         string                     `json:"uuid" validate:"required"`
	NodeType     NodeType                   `json:"nodeType"`
	Name         string                     `json:"name"`
	Slug         string                     `json:"slug"`
	ImageURL     json.RawMessage            `json:"imageUrl,omitempty"`
	Space        map[string][]NodeSpaceData `json:"space"`
	MaxPoints    int                        `json:"maxPoints" validate:"gte=0"`
	Taxon        json.RawMessage            `json:"taxon,omitempty"`
	Morphotype   *string                    `json:"morphotype,omitempty"`
	Description  *string                    `json:"description,omitempty"`
	DecisionRule string                     `json:"decisionRule,omitempty"`
}

// StepData is the raw, uninstantiated definition of one identification key.
type StepData struct {
	UUID               string                 `json:"uuid" validate:"required"`
	Name               string                 `json:"name"`
	Slug               string                 `json:"slug"`
	Morphotype         *string                `json:"morphotype,omitempty"`
	Taxon              json.RawMessage        `json:"taxon,omitempty"`
	OverviewImage      json.RawMessage        `json:"overviewImage,omitempty"`
	Description        *string                `json:"description,omitempty"`
	ChildrenCount      int                    `json:"childrenCount"`
	IdentificationMode IdentificationMode     `json:"identificationMode"`
	Children           []NodeData             `json:"children" validate:"dive"`
	MatrixFilters      OrderedMap[FilterData] `json:"matrixFilters"`
}

// Text decodes a text or html encoded space.
func (s SpaceData) Text() (string, bool) {
	return decodeText(s.EncodedSpace)
}

// Interval decodes a [min, max] encoded space.
func (s SpaceData) Interval() ([2]float64, bool) {
	return decodeInterval(s.EncodedSpace)
}

// Number decodes a scalar encoded space.
func (s SpaceData) Number() (float64, bool) {
	var v float64
	if err := json.Unmarshal(s.EncodedSpace, &v); err != nil {
		return 0, false
	}
	return v, true
}

// Color decodes an RGBA-like tuple.
func (s SpaceData) Color() ([]float64, bool) {
	var v []float64
	if err := json.Unmarshal(s.EncodedSpace, &v); err != nil || len(v) < 3 {
		return nil, false
	}
	return v, true
}

// Interval decodes the node's [min, max] value for a range filter.
func (s NodeSpaceData) Interval() ([2]float64, bool) {
	return decodeInterval(s.EncodedSpace)
}

// Interval decodes a restriction's declared [min, max] range.
func (r RestrictionData) Interval() ([2]float64, bool) {
	return decodeInterval(r.EncodedSpace)
}

func decodeText(raw json.RawMessage) (string, bool) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}

func decodeInterval(raw json.RawMessage) ([2]float64, bool) {
	var v []float64
	if len(raw) == 0 {
		return [2]float64{}, false
	}
	if err := json.Unmarshal(raw, &v); err != nil || len(v) < 2 {
		return [2]float64{}, false
	}
	lo, hi := v[0], v[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	return [2]float64{lo, hi}, true
}
