package types

import "errors"

// Error taxonomy for a chat turn. Handlers map these to HTTP statuses in one
// place; services wrap them with fmt.Errorf("...: %w", ...).
var (
	// ErrBadRequest is returned when a turn carries no usable location, text or
	// image at all. Rejected before any retrieval work.
	ErrBadRequest = errors.New("no usable input provided")

	// ErrUnavailable marks a single upstream call (collection store, geocoder,
	// nearby-places lookup) that failed. Always recovered locally with an
	// empty or fallback value, never aborts the turn.
	ErrUnavailable = errors.New("upstream service unavailable")

	// ErrParse marks a malformed "lat,lng" location string. Recovered by
	// skipping geocoding-dependent steps and using the raw string as address.
	ErrParse = errors.New("malformed location string")

	// ErrModel marks a failed language-model call. The only class surfaced as
	// a turn-level failure, since no narration can be produced without it.
	ErrModel = errors.New("language model request failed")

	ErrNotFound = errors.New("requested item not found")
)
