package runs

import (
	"georepute-backend/internal/insight"
	"georepute-backend/internal/synth"
)

func queriesFromTexts(texts []string) []synth.Query {
	out := make([]synth.Query, 0, len(texts))
	for _, text := range texts {
		intent, score := insight.ClassifyIntent(text)
		out = append(out, synth.Query{
			Text:        text,
			Language:    "en",
			Intent:      intent,
			IntentScore: score,
		})
	}
	return out
}

func analysisWith(mentioned bool, sentiment *float64) insight.Analysis {
	return insight.Analysis{
		BrandMentioned:   mentioned,
		SentimentScore:   sentiment,
		CompetitorsFound: []string{},
		QueryRelevance:   insight.RelevanceLow,
	}
}
