package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// excluded words signal that a question is about expertise rather than
// naming the expertise itself.
var excluded = map[string]bool{
	"expert":    true,
	"experts":   true,
	"expertise": true,
	"sme":       true,
	"help":      true,
}

// Keywords turns classifier keyword phrases into a KeywordSet: phrases are
// split on whitespace, lower-cased, and excluded words are removed. Order is
// preserved and duplicates are kept.
func Keywords(phrases []string) []string {
	var out []string
	for _, p := range phrases {
		for _, w := range strings.Fields(p) {
			w = strings.ToLower(w)
			if excluded[w] {
				continue
			}
			out = append(out, w)
		}
	}
	return out
}

// FormatConfidence renders a classifier confidence in [0,1] as a percentage
// with two decimals, e.g. 0.875 -> "87.50".
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c*100, 'f', 2, 64)
}

// AnnotationFetcher returns the raw JSON annotations of a message.
type AnnotationFetcher interface {
	MessageAnnotations(ctx context.Context, messageID string) ([]string, error)
}

// Query is an expert query recovered from a message.
type Query struct {
	Phrase     string
	Confidence float64
	Keywords   []string
}

// Extractor recovers the expert query from the message a user clicked on.
type Extractor struct {
	fetcher AnnotationFetcher
	logger  *slog.Logger
}

// NewExtractor creates an Extractor reading annotations through fetcher.
func NewExtractor(fetcher AnnotationFetcher) *Extractor {
	return &Extractor{fetcher: fetcher, logger: slog.Default()}
}

// Extract fetches the annotations of messageID and returns the first expert
// query focus found. Annotations that do not decode are skipped. It returns
// ErrNoExpertQuery when none match; the returned Query may still have no
// keywords left after filtering.
func (e *Extractor) Extract(ctx context.Context, messageID string) (Query, error) {
	raw, err := e.fetcher.MessageAnnotations(ctx, messageID)
	if err != nil {
		return Query{}, fmt.Errorf("fetching annotations of %s: %w", messageID, err)
	}

	for _, a := range raw {
		f, err := ParseFocus(a)
		if err != nil {
			e.logger.Warn("skipping undecodable annotation", "message_id", messageID, "error", err)
			continue
		}
		if f.Type != TypeMessageFocus || !f.IsExpertQuery() {
			continue
		}
		q := Query{
			Phrase:     f.Phrase,
			Confidence: f.Confidence,
			Keywords:   Keywords(f.KeywordTexts()),
		}
		e.logger.Debug("expert query recovered", "message_id", messageID, "phrase", q.Phrase, "keywords", q.Keywords)
		return q, nil
	}
	return Query{}, ErrNoExpertQuery
}
