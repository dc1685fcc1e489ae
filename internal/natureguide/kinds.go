package natureguide

import "strings"

// FilterType is the tag of a matrix filter kind.
type FilterType string

const (
	DescriptiveTextAndImagesFilter FilterType = "DescriptiveTextAndImagesFilter"
	RangeFilter                    FilterType = "RangeFilter"
	NumberFilter                   FilterType = "NumberFilter"
	TextOnlyFilter                 FilterType = "TextOnlyFilter"
	ColorFilter                    FilterType = "ColorFilter"
	TaxonFilter                    FilterType = "TaxonFilter"
)

// kind holds everything that differs between filter types.
type kind struct {
	// continuous kinds hold a single space that is selected with a value
	// instead of toggled.
	continuous bool
	// spaceID normalises a raw space identifier.
	spaceID func(filterUUID, raw string) string
	// satisfies reports whether a restricting space of this kind currently
	// lifts the restriction r.
	satisfies func(s *Space, r *restriction) bool
}

var kinds = map[FilterType]kind{
	DescriptiveTextAndImagesFilter: discreteKind,
	NumberFilter:                   discreteKind,
	TextOnlyFilter:                 discreteKind,
	ColorFilter:                    discreteKind,
	TaxonFilter:                    discreteKind,
	RangeFilter: {
		continuous: true,
		spaceID: func(filterUUID, raw string) string {
			return filterUUID
		},
		satisfies: func(s *Space, r *restriction) bool {
			if !s.isSelected {
				return false
			}
			if r.interval == nil {
				return true
			}
			return s.value >= r.interval[0] && s.value <= r.interval[1]
		},
	},
}

var discreteKind = kind{
	spaceID: func(_, raw string) string {
		return raw
	},
	satisfies: func(s *Space, _ *restriction) bool {
		return s.isSelected
	},
}

func lookupKind(t FilterType) (kind, bool) {
	k, ok := kinds[t]
	return k, ok
}

// Known reports whether t is one of the supported filter kinds.
func (t FilterType) Known() bool {
	_, ok := kinds[t]
	return ok
}

// IsContinuous reports whether t is selected by value.
func (t FilterType) IsContinuous() bool {
	return kinds[t].continuous
}

// filterUUIDOf returns the owning filter part of a composite space identifier.
func filterUUIDOf(spaceIdentifier string) string {
	uuid, _, _ := strings.Cut(spaceIdentifier, ":")
	return uuid
}
