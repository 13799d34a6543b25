package rag

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Quekzhengseng/ggdotcom/app/observability/metrics"
	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

const (
	DefaultPerCollectionLimit = 3
	defaultQueryTimeout       = 5 * time.Second
	termCacheTTL              = 10 * time.Minute
)

// Retriever fans a set of terms out across every collection and merges the
// results into one context bundle. Collections are queried concurrently;
// terms within one collection are tried sequentially, in priority order, so
// earlier terms' hits fill the per-collection cap first.
type Retriever struct {
	logger  *slog.Logger
	clients []CollectionClient
	limit   int
	timeout time.Duration
	cache   *cache.Cache
}

func NewRetriever(clients []CollectionClient, perCollectionLimit int, queryTimeout time.Duration, logger *slog.Logger) *Retriever {
	if perCollectionLimit <= 0 {
		perCollectionLimit = DefaultPerCollectionLimit
	}
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &Retriever{
		logger:  logger,
		clients: clients,
		limit:   perCollectionLimit,
		timeout: queryTimeout,
		cache:   cache.New(termCacheTTL, 2*termCacheTTL),
	}
}

// Retrieve builds the context bundle for one turn. queryText is the user's
// full question (may be empty); coord, when non-nil, enables the per-collection
// radius fallback. A failed or timed-out collection contributes nothing and
// never fails the turn; the bundle always has an entry for every collection.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, terms []string, coord *types.Coordinates) types.ContextBundle {
	ctx, span := otel.Tracer("Retriever").Start(ctx, "Retrieve", trace.WithAttributes(
		attribute.Int("terms.count", len(terms)),
		attribute.Int("collections.count", len(r.clients)),
	))
	defer span.End()

	start := time.Now()
	bundle := make(types.ContextBundle, len(r.clients))
	snippets := make([][]string, len(r.clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, client := range r.clients {
		g.Go(func() error {
			snippets[i] = r.retrieveCollection(gctx, client, queryText, terms, coord)
			return nil
		})
	}
	g.Wait() // workers never return errors; failures degrade to empty slots

	for i, client := range r.clients {
		if snippets[i] == nil {
			snippets[i] = []string{}
		}
		bundle[client.Key()] = snippets[i]
		span.SetAttributes(attribute.Int("snippets."+client.Key(), len(snippets[i])))
	}

	metrics.Get().RetrievalDurationSeconds.Record(ctx, time.Since(start).Seconds())
	span.SetStatus(codes.Ok, "Context bundle assembled")
	return bundle
}

// retrieveCollection walks the terms in priority order, accumulating
// formatted, deduplicated snippets up to the per-collection cap.
func (r *Retriever) retrieveCollection(ctx context.Context, client CollectionClient, queryText string, terms []string, coord *types.Coordinates) []string {
	l := r.logger.With(slog.String("collection", client.Key()))
	snippets := make([]string, 0, r.limit)

	for _, term := range terms {
		if len(snippets) >= r.limit {
			break
		}
		docs, err := r.queryTerm(ctx, client, term)
		if err != nil {
			// Unavailable or timed out: this collection simply contributes
			// nothing for this term.
			l.WarnContext(ctx, "Collection query failed, skipping term",
				slog.String("term", term), slog.Any("error", err))
			continue
		}
		if !client.Ranked() {
			docs = rankDocuments(docs, queryText, terms)
		}
		snippets = appendSnippets(snippets, docs, r.limit)
	}

	if len(snippets) == 0 && coord != nil {
		res, err := r.queryNear(ctx, client, *coord)
		if err != nil {
			l.WarnContext(ctx, "Coordinate fallback query failed",
				slog.Float64("lat", coord.Lat), slog.Float64("lng", coord.Lng),
				slog.Any("error", err))
			return snippets
		}
		snippets = appendSnippets(snippets, res, r.limit)
	}

	return snippets
}

func (r *Retriever) queryTerm(ctx context.Context, client CollectionClient, term string) ([]types.Document, error) {
	cacheKey := client.Key() + "|" + term
	if hit, ok := r.cache.Get(cacheKey); ok {
		return hit.([]types.Document), nil
	}

	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	metrics.Get().RetrievalQueriesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("collection", client.Key())))
	res, err := client.Query(qctx, term, r.limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = types.ErrUnavailable
		}
		return nil, err
	}

	r.cache.Set(cacheKey, res.Documents, cache.DefaultExpiration)
	return res.Documents, nil
}

func (r *Retriever) queryNear(ctx context.Context, client CollectionClient, coord types.Coordinates) ([]types.Document, error) {
	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := client.QueryNear(qctx, coord, r.limit)
	if err != nil {
		return nil, err
	}
	return res.Documents, nil
}

// rankDocuments stable-sorts by descending score and drops zero-score
// documents. Stability preserves original retrieval order on ties.
func rankDocuments(docs []types.Document, queryText string, terms []string) []types.Document {
	type scored struct {
		doc   types.Document
		score float64
	}
	ranked := make([]scored, 0, len(docs))
	for _, doc := range docs {
		if s := ScoreDocument(doc, queryText, terms); s > 0 {
			ranked = append(ranked, scored{doc: doc, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]types.Document, len(ranked))
	for i, s := range ranked {
		out[i] = s.doc
	}
	return out
}

func appendSnippets(snippets []string, docs []types.Document, limit int) []string {
	for _, doc := range docs {
		if len(snippets) >= limit {
			break
		}
		formatted := FormatDocument(doc.Text)
		if formatted == "" || containsString(snippets, formatted) {
			continue
		}
		snippets = append(snippets, formatted)
	}
	return snippets
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
