package tour

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

const personaInstruction = "You are a knowledgeable Singapore Tour Guide. Use the provided context to give accurate, engaging responses, but maintain a natural conversational tone."

// contextSections fixes the serialization order of the retrieval bundle.
var contextSections = []struct {
	key   string
	label string
}{
	{"wikipedia", "Historical and Wikipedia Information:"},
	{"attractions", "\nLocal Attraction Information:"},
}

// PromptInput carries everything the assembler needs to build one turn's
// messages. Question, ImageURI and LookbackText decide which prompt shape is
// used.
type PromptInput struct {
	SelectedPlace string
	Address       string
	Bundle        types.ContextBundle
	LookbackText  string
	Question      string
	ImageURI      string
}

// AssembleMessages builds the ordered message list for the model: the persona
// instruction, the serialized retrieval context when any collection returned
// snippets, then the user instruction with an optional image attachment.
func AssembleMessages(in PromptInput) []types.MessagePart {
	parts := []types.MessagePart{
		{Role: types.RoleSystem, Text: personaInstruction},
	}

	if contextText, ok := serializeBundle(in.Bundle); ok {
		parts = append(parts, types.MessagePart{Role: types.RoleSystem, Text: contextText})
	}

	parts = append(parts, types.MessagePart{
		Role:     types.RoleUser,
		Text:     userInstruction(in),
		ImageURI: in.ImageURI,
	})
	return parts
}

func serializeBundle(bundle types.ContextBundle) (string, bool) {
	var lines []string
	for _, section := range contextSections {
		snippets := bundle[section.key]
		if len(snippets) == 0 {
			continue
		}
		lines = append(lines, section.label)
		lines = append(lines, snippets...)
	}
	// Collections outside the fixed sections are emitted in key order so the
	// prompt is stable across turns.
	extraKeys := make([]string, 0, len(bundle))
	for key, snippets := range bundle {
		if knownSection(key) || len(snippets) == 0 {
			continue
		}
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		lines = append(lines, fmt.Sprintf("\n%s:", key))
		lines = append(lines, bundle[key]...)
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

func knownSection(key string) bool {
	for _, section := range contextSections {
		if section.key == key {
			return true
		}
	}
	return false
}

func userInstruction(in PromptInput) string {
	hasQuestion := in.Question != ""
	hasImage := in.ImageURI != ""
	switch {
	case hasQuestion && hasImage:
		return textPhotoPrompt(in.Address, in.Question)
	case hasImage:
		return photoPrompt(in.Address)
	case hasQuestion:
		return questionPrompt(in.SelectedPlace, in.Address, in.Question)
	default:
		return walkingTourPrompt(in.SelectedPlace, in.Address, in.LookbackText)
	}
}

func walkingTourPrompt(selectedPlace, address, pastMessages string) string {
	return fmt.Sprintf(`Due to insufficient information in the RAG, if the location provided below differs greatly from the context in the RAG, completely disregard the RAG and craft original content about the provided location instead.

You are a friendly Singapore Tour Guide giving a walking tour. If %s matches with %s, this means you are in a residential or developing area.
If both are the same, you might have talked about this location already. Here are past messages you have sent: [%s].
If empty, it means this is the first time you are talking about it.
If not empty, do not state the same thing again. Talk about something else about the area.

For residential/developing areas:
- Focus exclusively on the neighborhood or district, disregarding unrelated RAG content.
- Describe the most interesting aspects of the neighborhood or district you're in.
- Mention any nearby parks, nature areas, or community spaces.
- Include interesting facts about the area's development or future plans.
- Highlight what makes this area unique in Singapore.

For tourist landmarks:
- Name and describe the specific landmark.
- Share its historical significance and background.
- Explain its cultural importance in Singapore.
- Describe unique architectural features.
- Include interesting facts that make it special.

Start with "You see [Point of interest/Area name]" and keep the tone friendly and conversational, as if speaking to tourists in person. Don't mention exact addresses or coordinates. Use the RAG only if it directly mentions the landmark and matches the provided location. If the RAG does not match, ignore it entirely.`,
		selectedPlace, address, pastMessages)
}

func questionPrompt(selectedPlace, address, question string) string {
	return fmt.Sprintf(`Due to insufficient information in the RAG, if the location provided below differs greatly from the context in the RAG, completely disregard the RAG and craft original content about the provided location instead.

You are a friendly Singapore Tour Guide giving a walking tour. If %s matches with %s, this means you are in a residential or developing area.
If both are the same, you might have talked about this location already.
If empty, it means this is the first time you are talking about it.
If not empty, do not state the same thing again. Talk about something else about the area.

For residential/developing areas:
- Focus exclusively on the neighborhood or district, disregarding unrelated RAG content.
- Describe the most interesting aspects of the neighborhood or district you're in.
- Mention any nearby parks, nature areas, or community spaces.
- Include interesting facts about the area's development or future plans.
- Highlight what makes this area unique in Singapore.

For tourist landmarks:
- Name and describe the specific landmark.
- Use the RAG only if it directly mentions the landmark and matches the provided location. If the RAG does not match, ignore it entirely.
- Share its historical significance and background.
- Explain its cultural importance in Singapore.
- Describe unique architectural features.
- Include interesting facts that make it special.

The user have asked a question here: %s Answer what is given in the user's text and describe in detail regarding history or context that is applicable.`,
		selectedPlace, address, question)
}

func textPhotoPrompt(address, question string) string {
	return fmt.Sprintf(`You are a Singapore Tour Guide, please provide details regarding the text and photo that is given.
You are also given the user's address of %s to provide more context in regards to the users location.
Do not mention the address in your answer.
Answer what is given in the user's text and photo and describe in detail regarding history or context that is applicable.
Here is the Users text: %s`, address, question)
}

func photoPrompt(address string) string {
	return fmt.Sprintf(`You are a Singapore Tour Guide, please provide details regarding the photo that is given.
You are also given the user's address of %s to provide more context in regards to where the photo is taken.
Start by saying, You see [Point of interest]. Do not mention anything about the address in your answer.
Include only what is given in the photo and describe in detail regarding history or context.`, address)
}
