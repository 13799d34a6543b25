package tour

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

func TestAppendMessage(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	id := uuid.New()
	mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs("default", "hello", "", "1.29,103.85", true, 0, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	repo := NewRepositoryImpl(mockDB, testLogger())

	got, err := repo.AppendMessage(context.Background(), types.HistoryMessage{
		SessionKey:   "default",
		Text:         "hello",
		Location:     "1.29,103.85",
		UserAuthored: true,
	})
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAppendMessage_DBError(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs("default", "hello", "", "", false, 1, pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	repo := NewRepositoryImpl(mockDB, testLogger())

	_, err = repo.AppendMessage(context.Background(), types.HistoryMessage{
		SessionKey:  "default",
		Text:        "hello",
		RepeatCount: 1,
	})
	assert.Error(t, err)
}

func TestMostRecent(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "session_key", "chat_text", "image", "location", "user_authored", "repeat", "created_at"}).
		AddRow(uuid.New(), "default", "newest", "", "", false, 2, now).
		AddRow(uuid.New(), "default", "older", "", "", false, 1, now.Add(-time.Minute))

	mockDB.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs("default", 2).
		WillReturnRows(rows)

	repo := NewRepositoryImpl(mockDB, testLogger())

	msgs, err := repo.MostRecent(context.Background(), "default", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "newest", msgs[0].Text)
	assert.Equal(t, 2, msgs[0].RepeatCount)
	assert.Equal(t, "older", msgs[1].Text)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestMostRecent_ZeroShortCircuits(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewRepositoryImpl(mockDB, testLogger())

	msgs, err := repo.MostRecent(context.Background(), "default", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	// No query expected, and none should have run.
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAllMessages(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	rows := pgxmock.NewRows([]string{"id", "session_key", "chat_text", "image", "location", "user_authored", "repeat", "created_at"}).
		AddRow(uuid.New(), "default", "a reply", "", "1.29,103.85", false, 0, time.Now().UTC())

	mockDB.ExpectQuery(regexp.QuoteMeta("FROM messages")).
		WithArgs("default").
		WillReturnRows(rows)

	repo := NewRepositoryImpl(mockDB, testLogger())

	msgs, err := repo.AllMessages(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].UserAuthored)
}
