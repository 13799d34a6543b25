package tour

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the append-only, time-ordered history log for a session.
type Repository interface {
	AppendMessage(ctx context.Context, msg types.HistoryMessage) (uuid.UUID, error)
	// MostRecent returns up to n messages in descending timestamp order.
	MostRecent(ctx context.Context, sessionKey string, n int) ([]types.HistoryMessage, error)
	// AllMessages returns the full session history, newest first.
	AllMessages(ctx context.Context, sessionKey string) ([]types.HistoryMessage, error)
}

// PGXDB is the subset of pgxpool.Pool the history repository uses.
type PGXDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     PGXDB
}

func NewRepositoryImpl(db PGXDB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

func (r *RepositoryImpl) AppendMessage(ctx context.Context, msg types.HistoryMessage) (uuid.UUID, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "AppendMessage", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "messages"),
		attribute.String("session.key", msg.SessionKey),
		attribute.Bool("user_authored", msg.UserAuthored),
		attribute.Int("repeat", msg.RepeatCount),
	))
	defer span.End()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	query := `
        INSERT INTO messages (session_key, chat_text, image, location, user_authored, repeat, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		msg.SessionKey,
		msg.Text,
		msg.Image,
		msg.Location,
		msg.UserAuthored,
		msg.RepeatCount,
		msg.Timestamp,
	).Scan(&id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert message")
		return uuid.Nil, fmt.Errorf("failed to insert message: %w", err)
	}

	span.SetAttributes(attribute.String("message.id", id.String()))
	span.SetStatus(codes.Ok, "Message saved successfully")
	return id, nil
}

func (r *RepositoryImpl) MostRecent(ctx context.Context, sessionKey string, n int) ([]types.HistoryMessage, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "MostRecent", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "messages"),
		attribute.String("session.key", sessionKey),
		attribute.Int("limit", n),
	))
	defer span.End()

	if n <= 0 {
		span.SetStatus(codes.Ok, "Nothing requested")
		return []types.HistoryMessage{}, nil
	}

	query := `
        SELECT id, session_key, chat_text, image, location, user_authored, repeat, created_at
        FROM messages
        WHERE session_key = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, sessionKey, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query messages")
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to scan messages")
		return nil, fmt.Errorf("failed to scan recent messages: %w", err)
	}

	span.SetAttributes(attribute.Int("messages.count", len(msgs)))
	span.SetStatus(codes.Ok, "Messages fetched successfully")
	return msgs, nil
}

func (r *RepositoryImpl) AllMessages(ctx context.Context, sessionKey string) ([]types.HistoryMessage, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "AllMessages", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "messages"),
		attribute.String("session.key", sessionKey),
	))
	defer span.End()

	query := `
        SELECT id, session_key, chat_text, image, location, user_authored, repeat, created_at
        FROM messages
        WHERE session_key = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, sessionKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query messages")
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to scan messages")
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}

	span.SetAttributes(attribute.Int("messages.count", len(msgs)))
	span.SetStatus(codes.Ok, "Messages fetched successfully")
	return msgs, nil
}

func scanMessages(rows pgx.Rows) ([]types.HistoryMessage, error) {
	var msgs []types.HistoryMessage
	for rows.Next() {
		var msg types.HistoryMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionKey,
			&msg.Text,
			&msg.Image,
			&msg.Location,
			&msg.UserAuthored,
			&msg.RepeatCount,
			&msg.Timestamp,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
