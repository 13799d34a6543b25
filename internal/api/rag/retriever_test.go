package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

var _ CollectionClient = (*fakeClient)(nil)

// fakeClient is an in-memory CollectionClient for retriever tests. With
// blockUntilDone set, Query hangs until its context expires, like a stalled
// store connection.
type fakeClient struct {
	key            string
	ranked         bool
	byTerm         map[string][]types.Document
	near           []types.Document
	queryErr       error
	nearErr        error
	blockUntilDone bool

	queriedTerms []string
	nearCalled   bool
}

func (f *fakeClient) Key() string  { return f.key }
func (f *fakeClient) Ranked() bool { return f.ranked }

func (f *fakeClient) Query(ctx context.Context, term string, _ int) (types.CollectionResult, error) {
	f.queriedTerms = append(f.queriedTerms, term)
	if f.blockUntilDone {
		<-ctx.Done()
		return types.CollectionResult{}, ctx.Err()
	}
	if f.queryErr != nil {
		return types.CollectionResult{}, f.queryErr
	}
	return types.CollectionResult{CollectionKey: f.key, Documents: f.byTerm[term]}, nil
}

func (f *fakeClient) QueryNear(_ context.Context, _ types.Coordinates, _ int) (types.CollectionResult, error) {
	f.nearCalled = true
	if f.nearErr != nil {
		return types.CollectionResult{}, f.nearErr
	}
	return types.CollectionResult{CollectionKey: f.key, Documents: f.near}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func docs(texts ...string) []types.Document {
	out := make([]types.Document, len(texts))
	for i, t := range texts {
		out[i] = types.Document{Text: t}
	}
	return out
}

func TestRetrieve_EveryCollectionKeyPresent(t *testing.T) {
	wiki := &fakeClient{key: "wikipedia", byTerm: map[string][]types.Document{
		"merlion": docs("The Merlion is a statue."),
	}}
	attractions := &fakeClient{key: "attractions"}

	r := NewRetriever([]CollectionClient{wiki, attractions}, 3, time.Second, testLogger())
	bundle := r.Retrieve(context.Background(), "merlion", []string{"merlion"}, nil)

	require.Len(t, bundle, 2)
	assert.Equal(t, []string{"The Merlion is a statue."}, bundle["wikipedia"])
	assert.NotNil(t, bundle["attractions"])
	assert.Empty(t, bundle["attractions"])
}

func TestRetrieve_CapsSnippetsPerCollection(t *testing.T) {
	client := &fakeClient{key: "wikipedia", byTerm: map[string][]types.Document{
		"merlion": docs("merlion one", "merlion two", "merlion three"),
		"statue":  docs("statue one", "statue two"),
	}}

	r := NewRetriever([]CollectionClient{client}, 2, time.Second, testLogger())
	bundle := r.Retrieve(context.Background(), "merlion statue", []string{"merlion", "statue"}, nil)

	assert.Len(t, bundle["wikipedia"], 2)
	// The cap was hit on the first term, so the second was never queried.
	assert.Equal(t, []string{"merlion"}, client.queriedTerms)
}

func TestRetrieve_DeduplicatesSnippets(t *testing.T) {
	client := &fakeClient{key: "wikipedia", byTerm: map[string][]types.Document{
		"fort":    docs("Fort Canning fact."),
		"canning": docs("Fort Canning fact."),
	}}

	r := NewRetriever([]CollectionClient{client}, 5, time.Second, testLogger())
	bundle := r.Retrieve(context.Background(), "", []string{"fort", "canning"}, nil)

	assert.Equal(t, []string{"Fort Canning fact."}, bundle["wikipedia"])
}

func TestRetrieve_FailingCollectionDegradesToEmpty(t *testing.T) {
	broken := &fakeClient{key: "wikipedia", queryErr: errors.New("connection refused")}
	healthy := &fakeClient{key: "attractions", byTerm: map[string][]types.Document{
		"merlion": docs("attraction fact"),
	}}

	r := NewRetriever([]CollectionClient{broken, healthy}, 3, time.Second, testLogger())
	bundle := r.Retrieve(context.Background(), "merlion", []string{"merlion"}, nil)

	assert.Empty(t, bundle["wikipedia"])
	assert.Equal(t, []string{"attraction fact"}, bundle["attractions"])
}

func TestRetrieve_TimedOutCollectionDegradesToEmpty(t *testing.T) {
	stalled := &fakeClient{key: "wikipedia", blockUntilDone: true}
	healthy := &fakeClient{key: "attractions", byTerm: map[string][]types.Document{
		"merlion": docs("attraction fact"),
	}}

	r := NewRetriever([]CollectionClient{stalled, healthy}, 3, 20*time.Millisecond, testLogger())
	bundle := r.Retrieve(context.Background(), "merlion", []string{"merlion"}, nil)

	// The stalled collection still has its slot, just with nothing in it.
	require.NotNil(t, bundle["wikipedia"])
	assert.Empty(t, bundle["wikipedia"])
	assert.Equal(t, []string{"attraction fact"}, bundle["attractions"])
}

func TestRetrieve_CoordinateFallbackWhenTermsMiss(t *testing.T) {
	client := &fakeClient{
		key:  "attractions",
		near: docs("Something within 500 m."),
	}
	coord := &types.Coordinates{Lat: 1.2902, Lng: 103.8519}

	r := NewRetriever([]CollectionClient{client}, 3, time.Second, testLogger())
	bundle := r.Retrieve(context.Background(), "", []string{"nowhere"}, coord)

	assert.True(t, client.nearCalled)
	assert.Equal(t, []string{"Something within 500 m."}, bundle["attractions"])
}

func TestRetrieve_NoFallbackWithoutCoordinates(t *testing.T) {
	client := &fakeClient{key: "attractions"}

	r := NewRetriever([]CollectionClient{client}, 3, time.Second, testLogger())
	bundle := r.Retrieve(context.Background(), "", []string{"nowhere"}, nil)

	assert.False(t, client.nearCalled)
	assert.Empty(t, bundle["attractions"])
}

func TestRetrieve_NoFallbackWhenTermsHit(t *testing.T) {
	client := &fakeClient{
		key:    "wikipedia",
		byTerm: map[string][]types.Document{"merlion": docs("hit")},
		near:   docs("should not appear"),
	}
	coord := &types.Coordinates{Lat: 1.29, Lng: 103.85}

	r := NewRetriever([]CollectionClient{client}, 3, time.Second, testLogger())
	bundle := r.Retrieve(context.Background(), "", []string{"merlion"}, coord)

	assert.False(t, client.nearCalled)
	assert.Equal(t, []string{"hit"}, bundle["wikipedia"])
}

func TestRetrieve_UnrankedStoreIsRescored(t *testing.T) {
	// Store order has the weaker document first; the scorer must reorder.
	client := &fakeClient{key: "wikipedia", byTerm: map[string][]types.Document{
		"fort canning": {
			{Text: "Unrelated filler text."},
			{Text: "Fort Canning was home to Malay royalty."},
		},
	}}

	r := NewRetriever([]CollectionClient{client}, 3, time.Second, testLogger())
	bundle := r.Retrieve(context.Background(), "fort canning", []string{"fort canning"}, nil)

	require.Len(t, bundle["wikipedia"], 1)
	assert.Equal(t, "Fort Canning was home to Malay royalty.", bundle["wikipedia"][0])
}

func TestRetrieve_RankedStoreOrderTrusted(t *testing.T) {
	client := &fakeClient{key: "remote", ranked: true, byTerm: map[string][]types.Document{
		"fort canning": {
			{Text: "First as ranked by the store."},
			{Text: "Fort Canning was home to Malay royalty."},
		},
	}}

	r := NewRetriever([]CollectionClient{client}, 3, time.Second, testLogger())
	bundle := r.Retrieve(context.Background(), "fort canning", []string{"fort canning"}, nil)

	require.Len(t, bundle["remote"], 2)
	assert.Equal(t, "First as ranked by the store.", bundle["remote"][0])
}

func TestRetrieve_CachesTermResults(t *testing.T) {
	client := &fakeClient{key: "wikipedia", byTerm: map[string][]types.Document{
		"merlion": docs("cached fact"),
	}}

	r := NewRetriever([]CollectionClient{client}, 3, time.Second, testLogger())
	r.Retrieve(context.Background(), "", []string{"merlion"}, nil)
	r.Retrieve(context.Background(), "", []string{"merlion"}, nil)

	assert.Equal(t, []string{"merlion"}, client.queriedTerms, "second retrieve should hit the cache")
}
