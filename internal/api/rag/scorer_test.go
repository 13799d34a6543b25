package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

func TestScoreDocument_TermHitsWeightedByWordCount(t *testing.T) {
	doc := types.Document{Text: "Fort Canning Park is a hill in the heart of the city."}
	terms := []string{"fort canning park", "fort canning", "bukit timah"}

	score := ScoreDocument(doc, "history lesson", terms)

	// 3-word hit and 2-word hit, the miss contributes nothing.
	assert.InDelta(t, 0.3*3+0.3*2, score, 1e-9)
}

func TestScoreDocument_ExactQuerySubstring(t *testing.T) {
	doc := types.Document{Text: "The Merlion statue stands at Merlion Park."}

	with := ScoreDocument(doc, "merlion statue", nil)
	without := ScoreDocument(doc, "durian statue", nil)

	assert.InDelta(t, 2.0, with, 1e-9)
	assert.InDelta(t, 0.0, without, 1e-9)
}

func TestScoreDocument_MetadataBonuses(t *testing.T) {
	doc := types.Document{
		Text: "A colonial-era landmark.",
		Metadata: types.DocumentMetadata{
			Name:           "Raffles Hotel",
			AttractionType: "hotel",
		},
	}

	score := ScoreDocument(doc, "tell me about raffles hotel", nil)

	// Name match and attraction type match are both substrings of the query.
	assert.InDelta(t, 1.0+0.5, score, 1e-9)
}

func TestScoreDocument_AdditiveAcrossSignals(t *testing.T) {
	doc := types.Document{
		Text: "Fort Canning Park has seen many of Singapore's historical moments.",
		Metadata: types.DocumentMetadata{
			Name:           "Fort Canning Park",
			AttractionType: "park",
		},
	}
	terms := []string{"fort canning park", "fort canning", "park"}
	query := "fort canning park"

	score := ScoreDocument(doc, query, terms)

	expected := 2.0 + // doc contains the full query
		0.3*3 + 0.3*2 + 0.3*1 + // all three terms hit
		1.0 + 0.5 // metadata name and type appear in the query
	assert.InDelta(t, expected, score, 1e-9)
}

func TestScoreDocument_MoreRelevantScoresHigher(t *testing.T) {
	relevant := types.Document{Text: "Chinatown is known for its heritage shophouses."}
	irrelevant := types.Document{Text: "An unrelated note about airports."}
	terms := []string{"chinatown", "heritage shophouses"}

	assert.Greater(t,
		ScoreDocument(relevant, "chinatown heritage", terms),
		ScoreDocument(irrelevant, "chinatown heritage", terms),
	)
}
