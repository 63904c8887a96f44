package insight

import (
	"regexp"
	"strings"
)

var comparisonConnectives = []string{
	"vs", "versus", "better than", "worse than", "compared to", "compared with",
	"comparison", "alternative to", "instead of", "rather than",
	"superior to", "inferior to", "outperforms", "beats",
}

var (
	positiveWords = []string{
		"best", "great", "excellent", "leading", "top", "reliable", "powerful",
		"recommended", "popular", "superior", "robust", "intuitive", "affordable",
		"strong", "innovative", "outstanding", "impressive", "fast", "easy",
	}
	negativeWords = []string{
		"worst", "bad", "poor", "weak", "unreliable", "expensive", "limited",
		"inferior", "slow", "difficult", "clunky", "outdated", "lacking",
		"complicated", "buggy", "disappointing",
	}
)

var (
	numberedItem = regexp.MustCompile(`^\s*\d+[.)]\s`)
	bulletItem   = regexp.MustCompile(`^\s*[-*•]\s`)
	rankingCue   = regexp.MustCompile(`\b(top|best|leading)\b`)
)

// polarityWindow is the token distance within which a polarity word counts
// as referring to the competitor mention.
const polarityWindow = 6

// analyzeCompetitor builds the context record for one mentioned competitor.
func analyzeCompetitor(sentences []string, brandVars, compVars []string) CompetitorContext {
	ctx := CompetitorContext{
		ComparisonResult: ComparisonNeutral,
		Sentiment:        keywordSentimentDefault,
	}

	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		if !ContainsVariation(lower, compVars) {
			continue
		}
		if len(ctx.Sentences) < maxRetainedMentions {
			ctx.Sentences = append(ctx.Sentences, sentence)
		}
		if !ctx.InRankingList && isRankingItem(sentence) {
			ctx.InRankingList = true
		}
		if ctx.ComparisonResult == ComparisonNeutral && isComparisonSentence(lower, brandVars) {
			ctx.ComparisonResult = classifyComparison(lower, brandVars, compVars)
		}
	}

	if len(ctx.Sentences) > 0 {
		ctx.Sentiment = keywordSentiment(strings.Join(ctx.Sentences, ". "))
	}
	return ctx
}

// isComparisonSentence reports whether the sentence contains a comparison
// connective alongside a brand variation.
func isComparisonSentence(lowerSentence string, brandVars []string) bool {
	if !ContainsVariation(lowerSentence, brandVars) {
		return false
	}
	for _, conn := range comparisonConnectives {
		if conn == "vs" {
			if boundaryPattern(conn).MatchString(lowerSentence) {
				return true
			}
			continue
		}
		if strings.Contains(lowerSentence, conn) {
			return true
		}
	}
	return false
}

// classifyComparison decides who wins a direct comparison. Directional
// connectives ("better than", "worse than") are resolved by lexical order:
// whichever name precedes the connective is its subject. Otherwise the
// polarity of keywords near the competitor mention decides.
func classifyComparison(lowerSentence string, brandVars, compVars []string) string {
	brandIdx := firstVariationIndex(lowerSentence, brandVars)
	compIdx := firstVariationIndex(lowerSentence, compVars)

	if betterIdx := strings.Index(lowerSentence, "better than"); betterIdx >= 0 {
		return directionalResult(brandIdx, compIdx, betterIdx, true)
	}
	if idx := strings.Index(lowerSentence, "superior to"); idx >= 0 {
		return directionalResult(brandIdx, compIdx, idx, true)
	}
	if idx := strings.Index(lowerSentence, "outperforms"); idx >= 0 {
		return directionalResult(brandIdx, compIdx, idx, true)
	}
	if idx := strings.Index(lowerSentence, "beats"); idx >= 0 {
		return directionalResult(brandIdx, compIdx, idx, true)
	}
	if worseIdx := strings.Index(lowerSentence, "worse than"); worseIdx >= 0 {
		return directionalResult(brandIdx, compIdx, worseIdx, false)
	}
	if idx := strings.Index(lowerSentence, "inferior to"); idx >= 0 {
		return directionalResult(brandIdx, compIdx, idx, false)
	}

	if compIdx >= 0 {
		switch polarityNear(lowerSentence, compIdx) {
		case 1:
			return ComparisonCompetitorBetter
		case -1:
			return ComparisonCompetitorWorse
		}
	}
	return ComparisonNeutral
}

// directionalResult resolves "X <connective> Y" comparisons: the subject is
// whichever name sits before the connective.
func directionalResult(brandIdx, compIdx, connIdx int, positive bool) string {
	brandBefore := brandIdx >= 0 && brandIdx < connIdx
	compBefore := compIdx >= 0 && compIdx < connIdx

	switch {
	case brandBefore && (!compBefore || brandIdx < compIdx):
		if positive {
			return ComparisonBrandBetter
		}
		return ComparisonBrandWorse
	case compBefore:
		if positive {
			return ComparisonCompetitorBetter
		}
		return ComparisonCompetitorWorse
	default:
		return ComparisonNeutral
	}
}

func firstVariationIndex(lowerText string, variations []string) int {
	best := -1
	for _, v := range variations {
		if v == "" {
			continue
		}
		var idx int
		if len(v) <= shortTokenMax {
			loc := boundaryPattern(v).FindStringIndex(lowerText)
			if loc == nil {
				continue
			}
			idx = loc[0]
			// boundary pattern may consume a leading non-word rune
			if idx < len(lowerText) && !strings.HasPrefix(lowerText[idx:], v) {
				idx++
			}
		} else {
			idx = strings.Index(lowerText, v)
			if idx < 0 {
				continue
			}
		}
		if best < 0 || idx < best {
			best = idx
		}
	}
	return best
}

// polarityNear returns +1 or -1 when a polarity word falls within
// polarityWindow tokens of the byte offset, 0 otherwise.
func polarityNear(lowerSentence string, offset int) int {
	tokens := wordSplit.Split(lowerSentence, -1)
	mentionToken := tokenIndexAt(lowerSentence, offset)

	for i, tok := range tokens {
		dist := i - mentionToken
		if dist < 0 {
			dist = -dist
		}
		if dist > polarityWindow {
			continue
		}
		tok = nonWordStrip.ReplaceAllString(tok, "")
		for _, w := range positiveWords {
			if tok == w {
				return 1
			}
		}
		for _, w := range negativeWords {
			if tok == w {
				return -1
			}
		}
	}
	return 0
}

func tokenIndexAt(text string, offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	return len(wordSplit.Split(strings.TrimSpace(text[:offset]), -1)) - 1
}

func isRankingItem(sentence string) bool {
	return numberedItem.MatchString(sentence) ||
		bulletItem.MatchString(sentence) ||
		rankingCue.MatchString(strings.ToLower(sentence))
}
