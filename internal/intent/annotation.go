package intent

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Annotation types and lens values the bot reacts to.
const (
	TypeMessageFocus   = "message-focus"
	TypeActionSelected = "actionSelected"
	LensExpertQuery    = "expertquery"
)

var (
	// ErrMalformedPayload is returned when an annotation payload is not JSON
	// or lacks a field the bot depends on.
	ErrMalformedPayload = errors.New("intent: malformed annotation payload")

	// ErrNoExpertQuery is returned when a message carries no expert query
	// focus annotation.
	ErrNoExpertQuery = errors.New("intent: no expert query annotation")
)

// ActionSelected is the payload of an action fulfillment callback, sent when
// a user clicks a link or a button rendered by the bot.
type ActionSelected struct {
	ConversationID    string `json:"conversationId"`
	TargetDialogID    string `json:"targetDialogId"`
	ReferralMessageID string `json:"referralMessageId"`
	ActionID          string `json:"actionId"`
}

// ParseActionSelected decodes an actionSelected annotation payload.
func ParseActionSelected(payload string) (ActionSelected, error) {
	var a ActionSelected
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return ActionSelected{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if a.ActionID == "" || a.ConversationID == "" {
		return ActionSelected{}, fmt.Errorf("%w: actionId and conversationId are required", ErrMalformedPayload)
	}
	return a, nil
}

// Focus is a message-focus annotation produced by the platform's intent
// classifier.
type Focus struct {
	Type          string        `json:"type"`
	Lens          string        `json:"lens"`
	Phrase        string        `json:"phrase"`
	Confidence    float64       `json:"confidence"`
	ExtractedInfo extractedInfo `json:"extractedInfo"`
}

type extractedInfo struct {
	Keywords []keyword `json:"keywords"`
}

type keyword struct {
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}

// ParseFocus decodes a message-focus annotation. The webhook delivers the
// payload without a type field, so Type may be empty.
func ParseFocus(payload string) (Focus, error) {
	var f Focus
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return Focus{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return f, nil
}

// IsExpertQuery reports whether the focus was classified under the expert
// query lens.
func (f Focus) IsExpertQuery() bool {
	return f.Lens == LensExpertQuery
}

// KeywordTexts returns the raw keyword phrases in classifier order.
func (f Focus) KeywordTexts() []string {
	out := make([]string, 0, len(f.ExtractedInfo.Keywords))
	for _, k := range f.ExtractedInfo.Keywords {
		out = append(out, k.Text)
	}
	return out
}
