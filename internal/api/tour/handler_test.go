package tour

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

var _ Service = (*MockTourService)(nil)

// MockTourService is a mock implementation of Service
type MockTourService struct {
	mock.Mock
}

func (m *MockTourService) HandleTurn(ctx context.Context, input types.TurnInput) (*types.TurnResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TurnResult), args.Error(1)
}

func (m *MockTourService) Scan(ctx context.Context, location string, byRadius bool) ([]types.PlaceCandidate, error) {
	args := m.Called(ctx, location, byRadius)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.PlaceCandidate), args.Error(1)
}

func (m *MockTourService) Messages(ctx context.Context, sessionKey string) ([]types.HistoryMessage, error) {
	args := m.Called(ctx, sessionKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.HistoryMessage), args.Error(1)
}

func (m *MockTourService) Photo(ctx context.Context, photoRef string, maxWidth int) (string, error) {
	args := m.Called(ctx, photoRef, maxWidth)
	return args.String(0), args.Error(1)
}

func TestChatHandler(t *testing.T) {
	svc := new(MockTourService)
	svc.On("HandleTurn", mock.Anything, types.TurnInput{
		Location:      "1.29,103.85",
		VisitedPlaces: []string{"Esplanade"},
	}).Return(&types.TurnResult{
		ID:           uuid.New(),
		Timestamp:    time.Now().UTC(),
		Prompt:       "prompt text",
		Response:     "You see Merlion Park.",
		VisitedPlace: "Merlion Park",
	}, nil)

	handler := NewHandler(svc, testLogger())

	body, _ := json.Marshal(map[string]any{
		"location":      "1.29,103.85",
		"visitedPlaces": []string{"Esplanade"},
	})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "You see Merlion Park.", resp["response"])
	assert.Equal(t, "Merlion Park", resp["visitedPlace"])
	assert.NotEmpty(t, resp["id"])
	svc.AssertExpectations(t)
}

func TestChatHandler_MalformedBody(t *testing.T) {
	handler := NewHandler(new(MockTourService), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"bad request", types.ErrBadRequest, http.StatusBadRequest},
		{"model failure", types.ErrModel, http.StatusBadGateway},
		{"upstream unavailable", types.ErrUnavailable, http.StatusServiceUnavailable},
		{"not found", types.ErrNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockTourService)
			svc.On("HandleTurn", mock.Anything, mock.Anything).Return(nil, tc.err)
			handler := NewHandler(svc, testLogger())

			body, _ := json.Marshal(map[string]any{"location": "1.29,103.85"})
			req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Chat(rec, req)

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestScanHandler(t *testing.T) {
	svc := new(MockTourService)
	svc.On("Scan", mock.Anything, "1.29,103.85", true).
		Return([]types.PlaceCandidate{
			{Name: "Merlion Park", Coordinates: types.Coordinates{Lat: 1.2868, Lng: 103.8545}, PhotoRef: "ref-1"},
		}, nil)

	handler := NewHandler(svc, testLogger())

	body, _ := json.Marshal(map[string]any{"location": "1.29,103.85", "is_distance": true})
	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Scan(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Locations []struct {
			Name     string `json:"name"`
			PhotoRef string `json:"photo_reference"`
		} `json:"locations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Locations, 1)
	assert.Equal(t, "Merlion Park", resp.Locations[0].Name)
	assert.Equal(t, "ref-1", resp.Locations[0].PhotoRef)
}

func TestScanHandler_ParseFailure(t *testing.T) {
	svc := new(MockTourService)
	svc.On("Scan", mock.Anything, "junk", false).Return(nil, types.ErrParse)

	handler := NewHandler(svc, testLogger())

	body, _ := json.Marshal(map[string]any{"location": "junk"})
	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Scan(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessagesHandler(t *testing.T) {
	svc := new(MockTourService)
	svc.On("Messages", mock.Anything, "").
		Return([]types.HistoryMessage{{Text: "hello", UserAuthored: true}}, nil)

	handler := NewHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()

	handler.Messages(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []types.HistoryMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
}

func TestPhotoHandler(t *testing.T) {
	svc := new(MockTourService)
	svc.On("Photo", mock.Anything, "ref-1", 250).Return("QUJD", nil)

	handler := NewHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/image", nil)
	req.Header.Set("photo_reference", "ref-1")
	req.Header.Set("max_width", "250")
	rec := httptest.NewRecorder()

	handler.Photo(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "QUJD", resp["base64_image"])
}

func TestPhotoHandler_BadWidth(t *testing.T) {
	handler := NewHandler(new(MockTourService), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/image", nil)
	req.Header.Set("photo_reference", "ref-1")
	req.Header.Set("max_width", "zero")
	rec := httptest.NewRecorder()

	handler.Photo(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
