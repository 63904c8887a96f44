package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var floatPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ScoreSentiment asks a provider for a single sentiment score in [-1, 1] for
// the given text, optionally focused on a brand. The reply is parsed as the
// first float in the text; anything unparsable is an error so callers can
// fall back to the keyword heuristic.
func ScoreSentiment(ctx context.Context, client Client, text, brand string) (float64, error) {
	if client == nil {
		return 0, fmt.Errorf("no sentiment client")
	}

	prompt := "Rate the sentiment of the following text on a scale from -1 (very negative) to 1 (very positive). Reply with a single number only."
	if strings.TrimSpace(brand) != "" {
		prompt = fmt.Sprintf("Rate the sentiment toward %q in the following text on a scale from -1 (very negative) to 1 (very positive). Reply with a single number only.", brand)
	}
	reply, err := client.Invoke(ctx, prompt+"\n\n"+text, "en")
	if err != nil {
		return 0, err
	}

	match := floatPattern.FindString(reply)
	if match == "" {
		return 0, fmt.Errorf("no numeric score in reply %q", truncate(reply, 80))
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse score: %w", err)
	}
	if score < -1 {
		score = -1
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
