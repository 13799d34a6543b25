package rag

import (
	"context"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

// CollectionClient is the capability one knowledge collection exposes to the
// retriever. Implementations may run vector similarity, lexical or hybrid
// search; the retriever is agnostic to which.
//
// A successful query that finds nothing returns an empty result, not an
// error. A store that cannot be reached returns an error wrapping
// types.ErrUnavailable, which the retriever treats as "skip this collection
// for this term".
type CollectionClient interface {
	// Key is the stable logical collection name ("wikipedia", "attractions").
	Key() string

	// Ranked reports whether the backing store already orders results by
	// relevance. When false, the retriever re-ranks with ScoreDocument.
	Ranked() bool

	Query(ctx context.Context, term string, limit int) (types.CollectionResult, error)

	// QueryNear is the coordinate-based fallback used when every term came up
	// empty for this collection and the turn carried coordinates.
	QueryNear(ctx context.Context, coord types.Coordinates, limit int) (types.CollectionResult, error)
}
