package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

// Embedder produces the query vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PGXQuerier is the subset of pgxpool.Pool the document store uses.
type PGXQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ CollectionClient = (*PGVectorClient)(nil)

// PGVectorClient serves one logical collection from the local Postgres
// documents table, ordered by cosine distance on the pgvector column. The
// store has no lexical notion of relevance for our term model, so results are
// re-ranked by the scorer (Ranked returns false).
type PGVectorClient struct {
	logger     *slog.Logger
	db         PGXQuerier
	embedder   Embedder
	key        string
	collection string
}

// NewPGVectorClient maps the logical key ("wikipedia") onto the physical
// collection value stored in the documents table ("wikipedia_collection").
func NewPGVectorClient(db PGXQuerier, embedder Embedder, key, collection string, logger *slog.Logger) *PGVectorClient {
	return &PGVectorClient{
		logger:     logger,
		db:         db,
		embedder:   embedder,
		key:        key,
		collection: collection,
	}
}

func (c *PGVectorClient) Key() string  { return c.key }
func (c *PGVectorClient) Ranked() bool { return false }

func (c *PGVectorClient) Query(ctx context.Context, term string, limit int) (types.CollectionResult, error) {
	ctx, span := otel.Tracer("PGVectorClient").Start(ctx, "Query", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("collection.key", c.key),
		attribute.String("term", term),
	))
	defer span.End()

	embedding, err := c.embedder.Embed(ctx, term)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Embedding failed")
		return types.CollectionResult{}, fmt.Errorf("embedding term %q: %w: %w", term, types.ErrUnavailable, err)
	}

	query := `
        SELECT content, name, attraction_type, metadata
        FROM documents
        WHERE collection = $1
        ORDER BY embedding <=> $2
        LIMIT $3
    `
	rows, err := c.db.Query(ctx, query, c.collection, pgvector.NewVector(embedding), limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Document query failed")
		return types.CollectionResult{}, fmt.Errorf("querying collection %s: %w: %w", c.key, types.ErrUnavailable, err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Document scan failed")
		return types.CollectionResult{}, fmt.Errorf("scanning collection %s: %w: %w", c.key, types.ErrUnavailable, err)
	}

	span.SetAttributes(attribute.Int("documents.count", len(docs)))
	span.SetStatus(codes.Ok, "Documents retrieved")
	return types.CollectionResult{CollectionKey: c.key, Documents: docs}, nil
}

// QueryNear is the coordinate fallback: a degree-box filter around the point.
// Real geospatial indexing is out of scope; the box is good enough for the
// ~500 m radius this is used with.
func (c *PGVectorClient) QueryNear(ctx context.Context, coord types.Coordinates, limit int) (types.CollectionResult, error) {
	ctx, span := otel.Tracer("PGVectorClient").Start(ctx, "QueryNear", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("collection.key", c.key),
		attribute.Float64("lat", coord.Lat),
		attribute.Float64("lng", coord.Lng),
	))
	defer span.End()

	const radiusMeters = 500.0
	latDelta := radiusMeters / 111_320.0
	lngDelta := latDelta / math.Max(math.Cos(coord.Lat*math.Pi/180), 0.01)

	query := `
        SELECT content, name, attraction_type, metadata
        FROM documents
        WHERE collection = $1
          AND lat BETWEEN $2 AND $3
          AND lng BETWEEN $4 AND $5
        LIMIT $6
    `
	rows, err := c.db.Query(ctx, query, c.collection,
		coord.Lat-latDelta, coord.Lat+latDelta,
		coord.Lng-lngDelta, coord.Lng+lngDelta,
		limit,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Radius query failed")
		return types.CollectionResult{}, fmt.Errorf("radius query on %s: %w: %w", c.key, types.ErrUnavailable, err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Document scan failed")
		return types.CollectionResult{}, fmt.Errorf("scanning radius query on %s: %w: %w", c.key, types.ErrUnavailable, err)
	}

	span.SetAttributes(attribute.Int("documents.count", len(docs)))
	span.SetStatus(codes.Ok, "Documents retrieved")
	return types.CollectionResult{CollectionKey: c.key, Documents: docs}, nil
}

func scanDocuments(rows pgx.Rows) ([]types.Document, error) {
	var docs []types.Document
	for rows.Next() {
		var (
			doc   types.Document
			extra map[string]string
		)
		if err := rows.Scan(&doc.Text, &doc.Metadata.Name, &doc.Metadata.AttractionType, &extra); err != nil {
			return nil, err
		}
		doc.Metadata.Extra = extra
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
