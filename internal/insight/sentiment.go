package insight

import (
	"context"
	"strings"
)

// keywordSentimentDefault is the mild default-positive bias applied to any
// mention whose polarity is mixed or undetectable.
const keywordSentimentDefault = 0.1

const (
	keywordSentimentPositive = 0.7
	keywordSentimentNegative = -0.3
)

// SentimentFunc scores the sentiment of text toward a brand in [-1, 1].
// The primary implementation delegates to a language-model provider; the
// keyword vote below is the deterministic fallback.
type SentimentFunc func(ctx context.Context, text, brand string) (float64, error)

// keywordSentiment is a polarity-keyword vote over the text.
func keywordSentiment(text string) float64 {
	lower := strings.ToLower(text)

	var positive, negative bool
	for _, w := range positiveWords {
		if boundaryContains(lower, w) {
			positive = true
			break
		}
	}
	for _, w := range negativeWords {
		if boundaryContains(lower, w) {
			negative = true
			break
		}
	}

	switch {
	case positive && !negative:
		return keywordSentimentPositive
	case negative && !positive:
		return keywordSentimentNegative
	default:
		return keywordSentimentDefault
	}
}

func boundaryContains(lowerText, word string) bool {
	return boundaryPattern(word).MatchString(lowerText)
}
