package rag

import (
	"strings"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

// Score weights, additive in this order so partial sums are assertable.
const (
	exactQueryWeight     = 2.0
	termWordWeight       = 0.3
	metadataNameWeight   = 1.0
	attractionTypeWeight = 0.5
)

// ScoreDocument assigns a relevance score to a document for a query. Used
// only for stores that do not rank their own results; ranked stores are
// trusted as-is. Ties are broken by original retrieval order (the sort in the
// retriever is stable).
func ScoreDocument(doc types.Document, queryText string, terms []string) float64 {
	score := 0.0
	docLower := strings.ToLower(doc.Text)
	queryLower := strings.ToLower(queryText)

	if queryLower != "" && strings.Contains(docLower, queryLower) {
		score += exactQueryWeight
	}

	for _, term := range terms {
		if strings.Contains(docLower, term) {
			score += termWordWeight * float64(TermWeight(term))
		}
	}

	if name := strings.ToLower(doc.Metadata.Name); name != "" && strings.Contains(queryLower, name) {
		score += metadataNameWeight
	}
	if at := strings.ToLower(doc.Metadata.AttractionType); at != "" && strings.Contains(queryLower, at) {
		score += attractionTypeWeight
	}

	return score
}
