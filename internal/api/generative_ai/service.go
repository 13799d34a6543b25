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

	"github.com/Quekzhengseng/ggdotcom/internal/api/media"
	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultEmbeddingModel = "gemini-embedding-001"
)

var _ LanguageModelService = (*AIClient)(nil)

// LanguageModelService is the narration backend for a turn. A failure here is
// the only turn-level failure the core surfaces.
type LanguageModelService interface {
	Complete(ctx context.Context, parts []types.MessagePart, maxTokens int32, temperature float32) (string, error)
}

// AIClient wraps the Gemini client. Constructed once at startup and shared by
// injection; never re-created per request.
type AIClient struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

func NewAIClient(ctx context.Context, apiKey, model string, logger *slog.Logger) (*AIClient, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "NewAIClient")
	defer span.End()

	if apiKey == "" {
		err := fmt.Errorf("gemini API key is not set")
		span.RecordError(err)
		span.SetStatus(codes.Error, "API key not set")
		return nil, err
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	span.SetStatus(codes.Ok, "AI client created successfully")
	return &AIClient{
		logger: logger,
		client: client,
		model:  model,
	}, nil
}

// Complete sends the assembled prompt parts to the model. System parts become
// the system instruction; user parts become text and inline-image content.
func (ai *AIClient) Complete(ctx context.Context, parts []types.MessagePart, maxTokens int32, temperature float32) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Complete", trace.WithAttributes(
		attribute.Int("parts.count", len(parts)),
		attribute.String("model", ai.model),
	))
	defer span.End()

	l := ai.logger.With(slog.String("method", "Complete"), slog.String("model", ai.model))

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: maxTokens,
		Temperature:     genai.Ptr(temperature),
	}

	var systemTexts []string
	var userParts []*genai.Part
	for _, part := range parts {
		switch part.Role {
		case types.RoleSystem:
			systemTexts = append(systemTexts, part.Text)
		case types.RoleUser:
			if part.Text != "" {
				userParts = append(userParts, &genai.Part{Text: part.Text})
			}
			if part.ImageURI != "" {
				mime, data, err := media.DecodeDataURI(part.ImageURI)
				if err != nil {
					l.WarnContext(ctx, "Skipping undecodable image attachment", slog.Any("error", err))
					continue
				}
				userParts = append(userParts, &genai.Part{
					InlineData: &genai.Blob{MIMEType: mime, Data: data},
				})
			}
		}
	}
	if len(systemTexts) > 0 {
		config.SystemInstruction = genai.NewContentFromText(joinSystemTexts(systemTexts), genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromParts(userParts, genai.RoleUser)}

	result, err := ai.client.Models.GenerateContent(ctx, ai.model, contents, config)
	if err != nil {
		l.ErrorContext(ctx, "Content generation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", fmt.Errorf("generating narration: %w: %w", types.ErrModel, err)
	}

	responseText := result.Text()
	span.SetAttributes(attribute.Int("response.length", len(responseText)))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return responseText, nil
}

func joinSystemTexts(texts []string) string {
	if len(texts) == 1 {
		return texts[0]
	}
	joined := texts[0]
	for _, t := range texts[1:] {
		joined += "\n\n" + t
	}
	return joined
}
