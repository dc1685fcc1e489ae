package natureguide

import "errors"

var (
	// ErrKeyNotFound is returned when a guide has no key with the requested uuid.
	ErrKeyNotFound = errors.New("identification key not found")

	// ErrUnknownFilterType is returned when a raw filter carries a type tag
	// the engine cannot interpret.
	ErrUnknownFilterType = errors.New("unknown matrix filter type")

	// ErrInvalidStep wraps validation failures of raw key data.
	ErrInvalidStep = errors.New("invalid identification key data")

	// ErrNotAKey is returned when descending into a child that is a final result.
	ErrNotAKey = errors.New("node does not lead to an identification key")
)
