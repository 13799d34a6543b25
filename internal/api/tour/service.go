package tour

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/Quekzhengseng/ggdotcom/internal/api/generative_ai"
	"github.com/Quekzhengseng/ggdotcom/internal/api/media"
	"github.com/Quekzhengseng/ggdotcom/internal/api/places"
	"github.com/Quekzhengseng/ggdotcom/internal/api/rag"
	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

const (
	// DefaultSessionKey groups history when the caller does not name a session.
	DefaultSessionKey = "default"

	defaultMaxTokens   = 500
	defaultTemperature = 0.5
)

var _ Service = (*ServiceImpl)(nil)

// Service runs one conversational turn of the tour and the auxiliary
// place-scan, history and photo lookups the frontend uses around it.
type Service interface {
	HandleTurn(ctx context.Context, input types.TurnInput) (*types.TurnResult, error)
	Scan(ctx context.Context, location string, byRadius bool) ([]types.PlaceCandidate, error)
	Messages(ctx context.Context, sessionKey string) ([]types.HistoryMessage, error)
	Photo(ctx context.Context, photoRef string, maxWidth int) (string, error)
}

type ServiceImpl struct {
	logger      *slog.Logger
	places      places.Service
	retriever   *rag.Retriever
	llm         generativeAI.LanguageModelService
	history     Repository
	selector    *Selector
	maxTokens   int32
	temperature float32
}

func NewServiceImpl(
	placesSvc places.Service,
	retriever *rag.Retriever,
	llm generativeAI.LanguageModelService,
	history Repository,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		places:      placesSvc,
		retriever:   retriever,
		llm:         llm,
		history:     history,
		selector:    NewSelector(history, logger),
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
}

// HandleTurn resolves the caller's position, picks the place to narrate,
// gathers retrieval context, prompts the model and records both sides of the
// exchange. Upstream lookups degrade locally; only input validation and the
// model call itself can fail the turn.
func (s *ServiceImpl) HandleTurn(ctx context.Context, input types.TurnInput) (*types.TurnResult, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "HandleTurn", trace.WithAttributes(
		attribute.Bool("has_text", input.Text != ""),
		attribute.Bool("has_image", input.Image != ""),
		attribute.Int("visited.count", len(input.VisitedPlaces)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "HandleTurn"))

	if input.Location == "" && input.Text == "" && input.Image == "" {
		err := fmt.Errorf("turn requires a location, text or image: %w", types.ErrBadRequest)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty turn input")
		return nil, err
	}

	sessionKey := input.SessionKey
	if sessionKey == "" {
		sessionKey = DefaultSessionKey
	}

	imageURI := ""
	if input.Image != "" {
		normalized, err := media.NormalizeImage(input.Image)
		if err != nil {
			err = fmt.Errorf("invalid image payload: %w: %w", types.ErrBadRequest, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Invalid image payload")
			return nil, err
		}
		imageURI = normalized
	}

	coord, address := s.resolvePosition(ctx, input.Location)

	outcome := types.SelectionOutcome{SelectedPlace: address}
	visitedPlace := ""
	if input.Text == "" && imageURI == "" {
		outcome = s.selectWalkingStop(ctx, sessionKey, address, coord, input.VisitedPlaces)
		if !outcome.IsRepeatFallback {
			visitedPlace = outcome.SelectedPlace
		}
	} else if input.Text != "" && imageURI == "" && coord != nil {
		// A question is anchored to the closest place when one exists.
		if candidates, err := s.places.Nearby(ctx, coord.Lat, coord.Lng, false); err == nil && len(candidates) > 0 {
			outcome.SelectedPlace = candidates[0].Name
		}
	}

	searchSeed := outcome.SelectedPlace
	if searchSeed == "" {
		searchSeed = address
	}
	queryText := input.Text
	if queryText == "" {
		queryText = searchSeed
	}

	terms := rag.ExtractTerms(input.Text, searchSeed, "")
	bundle := s.retriever.Retrieve(ctx, queryText, terms, coord)

	parts := AssembleMessages(PromptInput{
		SelectedPlace: outcome.SelectedPlace,
		Address:       address,
		Bundle:        bundle,
		LookbackText:  outcome.LookbackText,
		Question:      input.Text,
		ImageURI:      imageURI,
	})
	promptText := parts[len(parts)-1].Text

	if input.Text != "" {
		s.recordMessage(ctx, types.HistoryMessage{
			SessionKey:   sessionKey,
			Text:         input.Text,
			Image:        input.Image,
			Location:     input.Location,
			UserAuthored: true,
			RepeatCount:  0,
		})
	}

	response, err := s.llm.Complete(ctx, parts, s.maxTokens, s.temperature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Narration failed")
		return nil, fmt.Errorf("completing turn: %w", err)
	}

	s.recordMessage(ctx, types.HistoryMessage{
		SessionKey:   sessionKey,
		Text:         response,
		Location:     input.Location,
		UserAuthored: false,
		RepeatCount:  outcome.RepeatCount,
	})

	l.InfoContext(ctx, "Turn completed",
		slog.String("selected_place", outcome.SelectedPlace),
		slog.Bool("repeat_fallback", outcome.IsRepeatFallback),
		slog.Int("repeat", outcome.RepeatCount))
	span.SetAttributes(
		attribute.String("selected.place", outcome.SelectedPlace),
		attribute.Bool("repeat.fallback", outcome.IsRepeatFallback),
	)
	span.SetStatus(codes.Ok, "Turn completed")

	return &types.TurnResult{
		ID:            uuid.New(),
		Timestamp:     time.Now().UTC(),
		Prompt:        promptText,
		Response:      response,
		SelectedPlace: outcome.SelectedPlace,
		VisitedPlace:  visitedPlace,
		RepeatCount:   outcome.RepeatCount,
		ContextBundle: bundle,
		PromptParts:   parts,
	}, nil
}

// Scan lists nearby attraction candidates for the frontend map view.
func (s *ServiceImpl) Scan(ctx context.Context, location string, byRadius bool) ([]types.PlaceCandidate, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "Scan", trace.WithAttributes(
		attribute.Bool("by_radius", byRadius),
	))
	defer span.End()

	coord, err := ParseLatLng(location)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unparseable location")
		return nil, err
	}

	candidates, err := s.places.Nearby(ctx, coord.Lat, coord.Lng, byRadius)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Nearby scan failed")
		return nil, fmt.Errorf("scanning nearby places: %w", err)
	}

	span.SetAttributes(attribute.Int("candidates.count", len(candidates)))
	span.SetStatus(codes.Ok, "Scan completed")
	return candidates, nil
}

func (s *ServiceImpl) Messages(ctx context.Context, sessionKey string) ([]types.HistoryMessage, error) {
	if sessionKey == "" {
		sessionKey = DefaultSessionKey
	}
	return s.history.AllMessages(ctx, sessionKey)
}

// Photo returns the base64 payload for a places photo reference.
func (s *ServiceImpl) Photo(ctx context.Context, photoRef string, maxWidth int) (string, error) {
	if photoRef == "" {
		return "", fmt.Errorf("photo reference is required: %w", types.ErrBadRequest)
	}
	data, err := s.places.Photo(ctx, photoRef, maxWidth)
	if err != nil {
		return "", err
	}
	return media.EncodeImage(data), nil
}

// resolvePosition turns the raw location field into optional coordinates and
// a human address. Either step can fail without failing the turn; the raw
// string then stands in for the address.
func (s *ServiceImpl) resolvePosition(ctx context.Context, location string) (*types.Coordinates, string) {
	if location == "" {
		return nil, ""
	}

	coord, err := ParseLatLng(location)
	if err != nil {
		s.logger.DebugContext(ctx, "Location is not a coordinate pair, using it verbatim",
			slog.String("location", location))
		return nil, location
	}

	address, err := s.places.ReverseGeocode(ctx, coord.Lat, coord.Lng)
	if err != nil {
		s.logger.WarnContext(ctx, "Reverse geocode failed, using raw coordinates as address",
			slog.Any("error", err))
		return &coord, location
	}
	return &coord, address
}

func (s *ServiceImpl) selectWalkingStop(ctx context.Context, sessionKey, address string, coord *types.Coordinates, visitedPlaces []string) types.SelectionOutcome {
	var candidates []types.PlaceCandidate
	if coord != nil {
		found, err := s.places.Nearby(ctx, coord.Lat, coord.Lng, false)
		if err != nil {
			s.logger.WarnContext(ctx, "Nearby lookup failed, narrating the address instead",
				slog.Any("error", err))
		} else {
			candidates = found
		}
	}

	visited := types.NewVisitedSet(visitedPlaces...)
	return s.selector.Select(ctx, sessionKey, address, candidates, visited)
}

func (s *ServiceImpl) recordMessage(ctx context.Context, msg types.HistoryMessage) {
	if _, err := s.history.AppendMessage(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record message",
			slog.Bool("user_authored", msg.UserAuthored),
			slog.Any("error", err))
	}
}

// ParseLatLng parses a "lat,lng" pair. Failure maps to the parse error class
// so callers can decide whether to recover or reject.
func ParseLatLng(location string) (types.Coordinates, error) {
	latRaw, lngRaw, ok := strings.Cut(location, ",")
	if !ok {
		return types.Coordinates{}, fmt.Errorf("location %q is not a lat,lng pair: %w", location, types.ErrParse)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return types.Coordinates{}, fmt.Errorf("parsing latitude from %q: %w", location, types.ErrParse)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if err != nil {
		return types.Coordinates{}, fmt.Errorf("parsing longitude from %q: %w", location, types.ErrParse)
	}
	return types.Coordinates{Lat: lat, Lng: lng}, nil
}
