package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDocument_JoinsLabeledSections(t *testing.T) {
	text := "Summary: Fort Canning is a small hill.\n\nHistory: It housed the Malay kings."
	assert.Equal(t, "Fort Canning is a small hill. It housed the Malay kings.", FormatDocument(text))
}

func TestFormatDocument_DropsUnlabeledSectionsBetweenLabels(t *testing.T) {
	text := "Summary: A.\n\nrandom noise\n\nDescription: B."
	assert.Equal(t, "A. B.", FormatDocument(text))
}

func TestFormatDocument_UnlabeledPassthrough(t *testing.T) {
	assert.Equal(t, "A scraped attraction blurb.", FormatDocument("  A scraped attraction blurb.  "))
}

func TestFormatDocument_EmptySectionBodies(t *testing.T) {
	assert.Equal(t, "B", FormatDocument("Summary:\n\nHistory: B"))
}

func TestFormatDocument_Empty(t *testing.T) {
	assert.Equal(t, "", FormatDocument(""))
	assert.Equal(t, "", FormatDocument("   \n  "))
}
