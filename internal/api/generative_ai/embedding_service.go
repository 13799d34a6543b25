package generativeAI

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// EmbeddingDimensions is the width of the documents table's vector column.
// Embedding requests pin the model output to this width; gemini-embedding-001
// returns 3072 values when left at its default.
const EmbeddingDimensions = 768

func embedContentConfig() *genai.EmbedContentConfig {
	return &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr[int32](EmbeddingDimensions),
	}
}

func checkEmbeddingWidth(values []float32) error {
	if len(values) != EmbeddingDimensions {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(values), EmbeddingDimensions)
	}
	return nil
}

// EmbeddingService produces query vectors for the pgvector document store.
type EmbeddingService struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

func NewEmbeddingService(ctx context.Context, apiKey, model string, logger *slog.Logger) (*EmbeddingService, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "NewEmbeddingService")
	defer span.End()

	if apiKey == "" {
		err := fmt.Errorf("gemini API key is not set")
		span.RecordError(err)
		span.SetStatus(codes.Error, "API key not set")
		return nil, err
	}
	if model == "" {
		model = defaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create embedding client")
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	span.SetStatus(codes.Ok, "Embedding service created successfully")
	return &EmbeddingService{
		logger: logger,
		client: client,
		model:  model,
	}, nil
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Embed", trace.WithAttributes(
		attribute.Int("text.length", len(text)),
		attribute.String("model", s.model),
	))
	defer span.End()

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := s.client.Models.EmbedContent(ctx, s.model, contents, embedContentConfig())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to embed content")
		return nil, fmt.Errorf("embedding content: %w", err)
	}
	if len(result.Embeddings) == 0 {
		err := fmt.Errorf("embedding response contained no vectors")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty embedding response")
		return nil, err
	}

	values := result.Embeddings[0].Values
	if err := checkEmbeddingWidth(values); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unexpected embedding width")
		return nil, err
	}

	span.SetAttributes(attribute.Int("embedding.dimensions", len(values)))
	span.SetStatus(codes.Ok, "Content embedded successfully")
	return values, nil
}
