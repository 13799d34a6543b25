package types

import (
	"time"

	"github.com/google/uuid"
)

// Document is a single knowledge-store entry. Immutable once retrieved.
type Document struct {
	Text     string           `json:"text"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata carries only the fields the scorer inspects, plus an open
// passthrough bag for store fields the core never looks at.
type DocumentMetadata struct {
	Name           string            `json:"name,omitempty"`
	AttractionType string            `json:"attraction_type,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// CollectionResult is one collection's answer for one term. CollectionKey is
// the stable logical name ("wikipedia", "attractions"), independent of the
// backing store's physical collection name.
type CollectionResult struct {
	CollectionKey string     `json:"collection_key"`
	Documents     []Document `json:"documents"`
}

// ContextBundle maps a collection key to its ordered, deduplicated snippets
// for one turn. Every requested collection has an entry, even if empty.
type ContextBundle map[string][]string

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceCandidate is a nearby point of interest as returned by the places
// service, already distance-ordered.
type PlaceCandidate struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"location"`
	PhotoRef    string      `json:"photo_reference,omitempty"`
}

// VisitedSet holds the place names already narrated in one session. It grows
// monotonically within a session and is supplied by the caller, not held in
// process-wide state.
type VisitedSet struct {
	names map[string]struct{}
	order []string
}

func NewVisitedSet(names ...string) *VisitedSet {
	v := &VisitedSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		v.Add(n)
	}
	return v
}

func (v *VisitedSet) Contains(name string) bool {
	_, ok := v.names[name]
	return ok
}

func (v *VisitedSet) Add(name string) {
	if _, ok := v.names[name]; ok {
		return
	}
	v.names[name] = struct{}{}
	v.order = append(v.order, name)
}

// Names returns the visited place names in insertion order.
func (v *VisitedSet) Names() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

func (v *VisitedSet) Len() int { return len(v.order) }

// SelectionOutcome is the result of picking the next place to narrate.
type SelectionOutcome struct {
	SelectedPlace    string `json:"selected_place"`
	IsRepeatFallback bool   `json:"is_repeat_fallback"`
	RepeatCount      int    `json:"repeat_count"`
	LookbackText     string `json:"lookback_text,omitempty"`
}

// HistoryMessage is one persisted chat message. The store returns them in
// descending timestamp order for lookback reads.
type HistoryMessage struct {
	ID           uuid.UUID `json:"id"`
	SessionKey   string    `json:"session_key"`
	Text         string    `json:"chat_text"`
	Image        string    `json:"image,omitempty"`
	Location     string    `json:"location,omitempty"`
	UserAuthored bool      `json:"user_authored"`
	RepeatCount  int       `json:"repeat"`
	Timestamp    time.Time `json:"timestamp"`
}

type MessageRole string

const (
	RoleSystem MessageRole = "system"
	RoleUser   MessageRole = "user"
)

// MessagePart is one role-tagged part of an outbound prompt. ImageURI, when
// set, is a normalized data URI attached to a user part.
type MessagePart struct {
	Role     MessageRole `json:"role"`
	Text     string      `json:"text"`
	ImageURI string      `json:"image_uri,omitempty"`
}

// TurnInput is the caller-facing input for one chat turn.
type TurnInput struct {
	SessionKey    string   `json:"session_key,omitempty"`
	Location      string   `json:"location,omitempty"`
	Text          string   `json:"text,omitempty"`
	Image         string   `json:"image,omitempty"`
	VisitedPlaces []string `json:"visitedPlaces,omitempty"`
}

// TurnResult is what one handled turn produces.
type TurnResult struct {
	ID            uuid.UUID     `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	Prompt        string        `json:"prompt"`
	Response      string        `json:"response"`
	SelectedPlace string        `json:"selected_place,omitempty"`
	VisitedPlace  string        `json:"visitedPlace,omitempty"`
	RepeatCount   int           `json:"repeat_count"`
	ContextBundle ContextBundle `json:"-"`
	PromptParts   []MessagePart `json:"-"`
}
