package tour

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Quekzhengseng/ggdotcom/app/observability/metrics"
	"github.com/Quekzhengseng/ggdotcom/internal/api"
	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type chatRequest struct {
	SessionKey    string   `json:"session_key,omitempty"`
	Location      string   `json:"location"`
	Text          string   `json:"text,omitempty"`
	Image         string   `json:"image,omitempty"`
	VisitedPlaces []string `json:"visitedPlaces,omitempty"`
}

type chatResponse struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	Prompt       string `json:"prompt"`
	Response     string `json:"response"`
	VisitedPlace string `json:"visitedPlace,omitempty"`
}

// Chat runs one conversational turn.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Chat"))
	start := time.Now()

	var req chatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(r.Context(), "Invalid chat request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.HandleTurn(r.Context(), types.TurnInput{
		SessionKey:    req.SessionKey,
		Location:      req.Location,
		Text:          req.Text,
		Image:         req.Image,
		VisitedPlaces: req.VisitedPlaces,
	})
	if err != nil {
		metrics.Get().ChatTurnErrorsTotal.Add(r.Context(), 1)
		h.writeError(w, r, err, "Chat turn failed")
		return
	}

	metrics.Get().ChatTurnsTotal.Add(r.Context(), 1,
		metric.WithAttributes(attribute.Bool("repeat_fallback", result.RepeatCount > 0)))
	metrics.Get().ChatTurnDurationSeconds.Record(r.Context(), time.Since(start).Seconds())
	if result.RepeatCount > 0 {
		metrics.Get().RepeatFallbacksTotal.Add(r.Context(), 1)
	}

	api.WriteJSONResponse(w, r, http.StatusOK, chatResponse{
		ID:           result.ID.String(),
		Timestamp:    result.Timestamp.Format(time.RFC3339),
		Prompt:       result.Prompt,
		Response:     result.Response,
		VisitedPlace: result.VisitedPlace,
	})
}

type scanRequest struct {
	Location   string `json:"location"`
	IsDistance bool   `json:"is_distance,omitempty"`
}

type scanLocation struct {
	Name     string            `json:"name"`
	Location types.Coordinates `json:"location"`
	PhotoRef string            `json:"photo_reference,omitempty"`
}

// Scan lists nearby attraction candidates for the map view.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Scan"))

	var req scanRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(r.Context(), "Invalid scan request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	candidates, err := h.service.Scan(r.Context(), req.Location, req.IsDistance)
	if err != nil {
		h.writeError(w, r, err, "Scan failed")
		return
	}

	locations := make([]scanLocation, 0, len(candidates))
	for _, c := range candidates {
		locations = append(locations, scanLocation{
			Name:     c.Name,
			Location: c.Coordinates,
			PhotoRef: c.PhotoRef,
		})
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"locations": locations,
	})
}

// Messages returns the stored session history, newest first.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionKey := r.URL.Query().Get("session_key")

	msgs, err := h.service.Messages(r.Context(), sessionKey)
	if err != nil {
		h.writeError(w, r, err, "History fetch failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, msgs)
}

// Photo resolves a places photo reference to base64 image data. The reference
// and optional width arrive as headers.
func (h *Handler) Photo(w http.ResponseWriter, r *http.Request) {
	photoRef := r.Header.Get("photo_reference")
	maxWidth := 400
	if raw := r.Header.Get("max_width"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "max_width must be a positive integer")
			return
		}
		maxWidth = parsed
	}

	encoded, err := h.service.Photo(r.Context(), photoRef, maxWidth)
	if err != nil {
		h.writeError(w, r, err, "Photo fetch failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"base64_image": encoded})
}

// writeError is the single place turn errors map onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	h.logger.ErrorContext(r.Context(), logMsg, slog.Any("error", err))
	switch {
	case errors.Is(err, types.ErrBadRequest), errors.Is(err, types.ErrParse):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrModel):
		api.ErrorResponse(w, r, http.StatusBadGateway, err.Error())
	case errors.Is(err, types.ErrUnavailable):
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		api.ErrorResponse(w, r, http.StatusInternalServerError, err.Error())
	}
}
