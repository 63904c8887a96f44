package insight

import (
	"context"
	"strings"

	"georepute-backend/internal/shared/telemetry"
)

// Analyzer turns one raw reply into a structured Analysis. Sentiment is
// delegated to the configured SentimentFunc with the keyword vote as
// fallback; everything else is deterministic.
type Analyzer struct {
	Sentiment SentimentFunc
}

// Analyze extracts brand and competitor signals from a reply.
func (a *Analyzer) Analyze(ctx context.Context, replyText, brandName string, competitors []string) Analysis {
	if strings.TrimSpace(replyText) == "" || strings.TrimSpace(brandName) == "" {
		return neutralAnalysis()
	}

	sentences := SplitSentences(replyText)
	lowerReply := strings.ToLower(replyText)
	brandVars := Variations(brandName)

	result := Analysis{
		CompetitorsFound: []string{},
		QueryRelevance:   RelevanceLow,
	}

	result.BrandMentioned = ContainsVariation(lowerReply, brandVars)
	if result.BrandMentioned {
		pos, mentionCtx, all := brandMentions(sentences, brandVars)
		if pos > 0 {
			result.MentionPosition = &pos
			result.MentionContext = mentionCtx
			result.AllBrandMentions = all
		}
	}

	for _, comp := range competitors {
		compVars := Variations(comp)
		if !ContainsVariation(lowerReply, compVars) {
			continue
		}
		result.CompetitorsFound = append(result.CompetitorsFound, comp)
		if result.CompetitorContexts == nil {
			result.CompetitorContexts = make(map[string]CompetitorContext)
		}
		result.CompetitorContexts[comp] = analyzeCompetitor(sentences, brandVars, compVars)
	}

	// Neither brand nor competitors present: skip sentiment entirely.
	if !result.BrandMentioned && len(result.CompetitorsFound) == 0 {
		return result
	}

	result.Sources = ExtractSources(replyText)
	result.QueryRelevance = relevance(result)

	if result.BrandMentioned {
		score := a.scoreSentiment(ctx, replyText, brandName)
		result.SentimentScore = &score
	}

	return result
}

func (a *Analyzer) scoreSentiment(ctx context.Context, text, brand string) float64 {
	if a.Sentiment != nil {
		score, err := a.Sentiment(ctx, text, brand)
		if err == nil {
			return score
		}
		telemetry.Warn("sentiment.fallback", map[string]any{"error": err.Error()})
	}
	return keywordSentiment(text)
}

func relevance(result Analysis) string {
	if result.BrandMentioned {
		if result.MentionPosition != nil && *result.MentionPosition <= 3 {
			return RelevanceHigh
		}
		return RelevanceMedium
	}
	if len(result.CompetitorsFound) > 0 {
		return RelevanceMedium
	}
	return RelevanceLow
}
