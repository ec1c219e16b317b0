// Package search holds the listing search engines: the Elasticsearch index engine,
// the canonical-store fallback engine, and the indexer that mirrors listings into the index.
package search

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/models"
)

// ErrIndexUnavailable covers every failure of the search index: connection refused,
// timeouts, missing index, malformed responses.
var ErrIndexUnavailable = errors.New("search index unavailable")

// ErrQueryRejected marks an index failure caused by the query itself rather than the
// index. It is always wrapped together with ErrIndexUnavailable.
var ErrQueryRejected = errors.New("search query rejected")

// MaxResultWindow is the deepest result offset plus page size the index will serve.
const MaxResultWindow = 10_000

// Hits is an ordered page of matching listing ids and the total number of matches.
type Hits struct {
	IDs   []primitive.ObjectID
	Total int64
}

// Engine answers a normalised search with listing ids. Implementations must apply
// the same filters and active-only constraint so their results are interchangeable.
type Engine interface {
	Name() string
	Search(ctx context.Context, params models.SearchParams) (*Hits, error)
}
