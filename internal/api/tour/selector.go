package tour

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

// Selector picks the next place to narrate. When every nearby candidate has
// already been covered it degrades to a repeat visit anchored on the address,
// pulling recent history so the narration can avoid repeating itself.
type Selector struct {
	logger  *slog.Logger
	history Repository
}

func NewSelector(history Repository, logger *slog.Logger) *Selector {
	return &Selector{
		logger:  logger,
		history: history,
	}
}

// Select walks candidates in order and picks the first one not in visited,
// recording it there. With no fresh candidate it returns a repeat outcome for
// the address: the repeat count continues from the latest stored message and
// the lookback text joins that many recent messages, newest first.
func (s *Selector) Select(ctx context.Context, sessionKey, address string, candidates []types.PlaceCandidate, visited *types.VisitedSet) types.SelectionOutcome {
	ctx, span := otel.Tracer("TourSelector").Start(ctx, "Select", trace.WithAttributes(
		attribute.Int("candidates.count", len(candidates)),
		attribute.Int("visited.count", visited.Len()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Select"), slog.String("session", sessionKey))

	for _, candidate := range candidates {
		if candidate.Name == "" || visited.Contains(candidate.Name) {
			continue
		}
		visited.Add(candidate.Name)
		l.DebugContext(ctx, "Selected fresh place", slog.String("place", candidate.Name))
		span.SetAttributes(attribute.String("selected.place", candidate.Name))
		span.SetStatus(codes.Ok, "Fresh place selected")
		return types.SelectionOutcome{
			SelectedPlace: candidate.Name,
			RepeatCount:   0,
		}
	}

	outcome := types.SelectionOutcome{
		SelectedPlace:    address,
		IsRepeatFallback: true,
		RepeatCount:      1,
	}

	latest, err := s.history.MostRecent(ctx, sessionKey, 1)
	if err != nil {
		l.WarnContext(ctx, "History unavailable, repeating without lookback", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Ok, "Repeat fallback without history")
		return outcome
	}

	lookbackDepth := 0
	if len(latest) > 0 {
		lookbackDepth = latest[0].RepeatCount
	}
	outcome.RepeatCount = lookbackDepth + 1

	if lookbackDepth > 0 {
		recent, err := s.history.MostRecent(ctx, sessionKey, lookbackDepth)
		if err != nil {
			l.WarnContext(ctx, "Lookback fetch failed, repeating without lookback", slog.Any("error", err))
			span.RecordError(err)
		} else {
			texts := make([]string, 0, len(recent))
			for _, msg := range recent {
				if msg.Text != "" {
					texts = append(texts, msg.Text)
				}
			}
			outcome.LookbackText = strings.Join(texts, " ")
		}
	}

	l.DebugContext(ctx, "All candidates visited, repeating address",
		slog.String("address", address),
		slog.Int("repeat", outcome.RepeatCount))
	span.SetAttributes(
		attribute.Bool("repeat.fallback", true),
		attribute.Int("repeat.count", outcome.RepeatCount),
	)
	span.SetStatus(codes.Ok, "Repeat fallback selected")
	return outcome
}
