package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

var _ CollectionClient = (*RemoteClient)(nil)

// RemoteClient serves one logical collection from a hosted vector-search
// service over HTTP. The service ranks its own results (vector or hybrid
// search), so the scorer is skipped for this client.
type RemoteClient struct {
	logger  *slog.Logger
	httpc   *http.Client
	baseURL string
	key     string
}

func NewRemoteClient(baseURL, key string, httpc *http.Client, logger *slog.Logger) *RemoteClient {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &RemoteClient{
		logger:  logger,
		httpc:   httpc,
		baseURL: baseURL,
		key:     key,
	}
}

func (c *RemoteClient) Key() string  { return c.key }
func (c *RemoteClient) Ranked() bool { return true }

type remoteQueryRequest struct {
	PlaceName string   `json:"place_name"`
	Limit     int      `json:"limit"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
}

type remoteDocument struct {
	Text     string            `json:"text"`
	Name     string            `json:"name,omitempty"`
	Type     string            `json:"attraction_type,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type remoteQueryResponse struct {
	Documents []remoteDocument `json:"documents"`
}

func (c *RemoteClient) Query(ctx context.Context, term string, limit int) (types.CollectionResult, error) {
	return c.post(ctx, remoteQueryRequest{PlaceName: term, Limit: limit})
}

func (c *RemoteClient) QueryNear(ctx context.Context, coord types.Coordinates, limit int) (types.CollectionResult, error) {
	return c.post(ctx, remoteQueryRequest{Limit: limit, Lat: &coord.Lat, Lng: &coord.Lng})
}

func (c *RemoteClient) post(ctx context.Context, reqBody remoteQueryRequest) (types.CollectionResult, error) {
	ctx, span := otel.Tracer("RemoteClient").Start(ctx, "Query", trace.WithAttributes(
		attribute.String("collection.key", c.key),
		attribute.String("term", reqBody.PlaceName),
	))
	defer span.End()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		span.RecordError(err)
		return types.CollectionResult{}, fmt.Errorf("encoding query for %s: %w", c.key, err)
	}

	url := c.baseURL + "/RAG"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return types.CollectionResult{}, fmt.Errorf("building query for %s: %w", c.key, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Remote store unreachable")
		return types.CollectionResult{}, fmt.Errorf("querying remote store %s: %w: %w", c.key, types.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("remote store %s returned status %d: %w", c.key, resp.StatusCode, types.ErrUnavailable)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Remote store error status")
		return types.CollectionResult{}, err
	}

	var body remoteQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Remote store response malformed")
		return types.CollectionResult{}, fmt.Errorf("decoding remote store %s response: %w: %w", c.key, types.ErrUnavailable, err)
	}

	docs := make([]types.Document, 0, len(body.Documents))
	for _, rd := range body.Documents {
		docs = append(docs, types.Document{
			Text: rd.Text,
			Metadata: types.DocumentMetadata{
				Name:           rd.Name,
				AttractionType: rd.Type,
				Extra:          rd.Metadata,
			},
		})
	}

	span.SetAttributes(attribute.Int("documents.count", len(docs)))
	span.SetStatus(codes.Ok, "Documents retrieved")
	return types.CollectionResult{CollectionKey: c.key, Documents: docs}, nil
}
