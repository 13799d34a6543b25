package tour

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

func TestAssembleMessages_PersonaAlwaysFirst(t *testing.T) {
	parts := AssembleMessages(PromptInput{SelectedPlace: "Merlion Park", Address: "1 Fullerton Rd"})

	require.NotEmpty(t, parts)
	assert.Equal(t, types.RoleSystem, parts[0].Role)
	assert.Contains(t, parts[0].Text, "knowledgeable Singapore Tour Guide")
}

func TestAssembleMessages_ContextSerialization(t *testing.T) {
	bundle := types.ContextBundle{
		"wikipedia":   {"wiki fact one", "wiki fact two"},
		"attractions": {"attraction fact"},
	}
	parts := AssembleMessages(PromptInput{SelectedPlace: "X", Address: "Y", Bundle: bundle})

	require.Len(t, parts, 3)
	contextPart := parts[1]
	assert.Equal(t, types.RoleSystem, contextPart.Role)

	wikiIdx := strings.Index(contextPart.Text, "Historical and Wikipedia Information:")
	attrIdx := strings.Index(contextPart.Text, "Local Attraction Information:")
	require.GreaterOrEqual(t, wikiIdx, 0)
	require.GreaterOrEqual(t, attrIdx, 0)
	assert.Less(t, wikiIdx, attrIdx)
	assert.Contains(t, contextPart.Text, "wiki fact two")
	assert.Contains(t, contextPart.Text, "attraction fact")
}

func TestAssembleMessages_ExtraCollectionsSerializedInKeyOrder(t *testing.T) {
	bundle := types.ContextBundle{
		"wikipedia": {"wiki fact"},
		"temples":   {"temple fact"},
		"hawkers":   {"hawker fact"},
	}

	// Map iteration order varies, so the extra sections must come out the
	// same on every assembly.
	var first string
	for i := 0; i < 10; i++ {
		parts := AssembleMessages(PromptInput{SelectedPlace: "X", Address: "Y", Bundle: bundle})
		require.Len(t, parts, 3)
		if i == 0 {
			first = parts[1].Text
			hawkerIdx := strings.Index(first, "hawkers:")
			templeIdx := strings.Index(first, "temples:")
			require.GreaterOrEqual(t, hawkerIdx, 0)
			require.GreaterOrEqual(t, templeIdx, 0)
			assert.Less(t, hawkerIdx, templeIdx)
			assert.Less(t, strings.Index(first, "Historical and Wikipedia Information:"), hawkerIdx)
			continue
		}
		assert.Equal(t, first, parts[1].Text)
	}
}

func TestAssembleMessages_EmptyBundleSkipsContextMessage(t *testing.T) {
	bundle := types.ContextBundle{"wikipedia": {}, "attractions": {}}
	parts := AssembleMessages(PromptInput{SelectedPlace: "X", Address: "Y", Bundle: bundle})

	require.Len(t, parts, 2)
	assert.Equal(t, types.RoleUser, parts[1].Role)
}

func TestAssembleMessages_WalkingTourShape(t *testing.T) {
	parts := AssembleMessages(PromptInput{
		SelectedPlace: "Merlion Park",
		Address:       "1 Fullerton Rd",
		LookbackText:  "previous narration",
	})

	user := parts[len(parts)-1]
	assert.Equal(t, types.RoleUser, user.Role)
	assert.Contains(t, user.Text, "walking tour")
	assert.Contains(t, user.Text, "Merlion Park")
	assert.Contains(t, user.Text, "1 Fullerton Rd")
	assert.Contains(t, user.Text, "[previous narration]")
	assert.Contains(t, user.Text, `Start with "You see`)
	assert.Empty(t, user.ImageURI)
}

func TestAssembleMessages_QuestionShape(t *testing.T) {
	parts := AssembleMessages(PromptInput{
		SelectedPlace: "Merlion Park",
		Address:       "1 Fullerton Rd",
		Question:      "Who built this?",
	})

	user := parts[len(parts)-1]
	assert.Contains(t, user.Text, "The user have asked a question here: Who built this?")
	assert.NotContains(t, user.Text, "past messages")
}

func TestAssembleMessages_PhotoShape(t *testing.T) {
	parts := AssembleMessages(PromptInput{
		Address:  "1 Fullerton Rd",
		ImageURI: "data:image/jpeg;base64,QUJD",
	})

	user := parts[len(parts)-1]
	assert.Contains(t, user.Text, "regarding the photo that is given")
	assert.Contains(t, user.Text, "You see [Point of interest]")
	assert.Equal(t, "data:image/jpeg;base64,QUJD", user.ImageURI)
}

func TestAssembleMessages_TextAndPhotoShape(t *testing.T) {
	parts := AssembleMessages(PromptInput{
		Address:  "1 Fullerton Rd",
		Question: "What is this building?",
		ImageURI: "data:image/jpeg;base64,QUJD",
	})

	user := parts[len(parts)-1]
	assert.Contains(t, user.Text, "regarding the text and photo that is given")
	assert.Contains(t, user.Text, "Here is the Users text: What is this building?")
	assert.Equal(t, "data:image/jpeg;base64,QUJD", user.ImageURI)
}
