package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mockFetcher implements AnnotationFetcher for testing.
type mockFetcher struct {
	annotations []string
	err         error
	gotID       string
}

func (m *mockFetcher) MessageAnnotations(ctx context.Context, messageID string) ([]string, error) {
	m.gotID = messageID
	return m.annotations, m.err
}

const expertFocus = `{
	"type": "message-focus",
	"lens": "expertquery",
	"phrase": "Is there an expert in Java?",
	"confidence": 0.875,
	"extractedInfo": {"keywords": [{"text": "Expert", "relevance": 0.9}, {"text": "in Java", "relevance": 0.8}]}
}`

func TestKeywords_ExclusionFilter(t *testing.T) {
	got := Keywords([]string{"expert", "machine", "learning", "help"})
	want := []string{"machine", "learning"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Keywords mismatch (-want +got):\n%s", diff)
	}
}

func TestKeywords_SplitsAndLowercases(t *testing.T) {
	got := Keywords([]string{"Machine  Learning", "SME", "Kubernetes experts", "go"})
	want := []string{"machine", "learning", "kubernetes", "go"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Keywords mismatch (-want +got):\n%s", diff)
	}
}

func TestKeywords_AllExcluded(t *testing.T) {
	if got := Keywords([]string{"Expertise", "help"}); len(got) != 0 {
		t.Errorf("Keywords = %v, want empty", got)
	}
}

func TestFormatConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.875, "87.50"},
		{1, "100.00"},
		{0, "0.00"},
		{0.9999, "99.99"},
	}
	for _, tt := range tests {
		if got := FormatConfidence(tt.in); got != tt.want {
			t.Errorf("FormatConfidence(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseActionSelected(t *testing.T) {
	a, err := ParseActionSelected(`{"conversationId":"c1","targetDialogId":"d1","referralMessageId":"m1","actionId":"SHOWEXPERT-u1"}`)
	if err != nil {
		t.Fatalf("ParseActionSelected: %v", err)
	}
	want := ActionSelected{ConversationID: "c1", TargetDialogID: "d1", ReferralMessageID: "m1", ActionID: "SHOWEXPERT-u1"}
	if a != want {
		t.Errorf("ParseActionSelected = %+v, want %+v", a, want)
	}
}

func TestParseActionSelected_Malformed(t *testing.T) {
	for _, payload := range []string{`not json`, `{"conversationId":"c1"}`, `{"actionId":"STOP"}`} {
		if _, err := ParseActionSelected(payload); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("ParseActionSelected(%q) err = %v, want ErrMalformedPayload", payload, err)
		}
	}
}

func TestParseFocus(t *testing.T) {
	f, err := ParseFocus(`{"lens":"expertquery","phrase":"who knows go","confidence":0.5}`)
	if err != nil {
		t.Fatalf("ParseFocus: %v", err)
	}
	if !f.IsExpertQuery() {
		t.Error("IsExpertQuery() = false, want true")
	}
	if f.Phrase != "who knows go" {
		t.Errorf("Phrase = %q", f.Phrase)
	}
}

func TestExtract(t *testing.T) {
	m := &mockFetcher{annotations: []string{
		`{"type":"generic","text":"hello"}`,
		`{broken`,
		`{"type":"message-focus","lens":"ActionRequest","confidence":0.9}`,
		expertFocus,
	}}
	e := NewExtractor(m)

	q, err := e.Extract(context.Background(), "msg-1")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if m.gotID != "msg-1" {
		t.Errorf("fetched message %q, want msg-1", m.gotID)
	}
	want := Query{
		Phrase:     "Is there an expert in Java?",
		Confidence: 0.875,
		Keywords:   []string{"in", "java"},
	}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_NoExpertQuery(t *testing.T) {
	m := &mockFetcher{annotations: []string{`{"type":"message-focus","lens":"ActionRequest"}`}}
	_, err := NewExtractor(m).Extract(context.Background(), "msg-1")
	if !errors.Is(err, ErrNoExpertQuery) {
		t.Errorf("err = %v, want ErrNoExpertQuery", err)
	}
}

func TestExtract_FetchError(t *testing.T) {
	boom := errors.New("boom")
	m := &mockFetcher{err: boom}
	_, err := NewExtractor(m).Extract(context.Background(), "msg-1")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped fetch error", err)
	}
}
