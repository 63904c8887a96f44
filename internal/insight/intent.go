package insight

import "strings"

var (
	transactionalKeywords = []string{
		"buy", "purchase", "price", "pricing", "cost", "order", "discount",
		"deal", "coupon", "subscription", "trial", "demo", "quote", "sign up",
		"signup", "license",
	}
	comparisonKeywords = []string{
		"vs", "versus", "compare", "comparison", "alternative", "alternatives",
		"difference between", "better than", "instead of", "switch from",
	}
	evaluationKeywords = []string{
		"review", "reviews", "rating", "ratings", "pros and cons", "features",
		"worth it", "evaluation", "feedback", "testimonial",
	}
	informationalKeywords = []string{
		"what is", "what are", "how to", "how do", "how does", "why",
		"guide", "tutorial", "meaning", "definition", "explain", "examples",
	}
)

const (
	intentBaseScore          = 30
	intentTransactionalBoost = 40
	intentComparisonBoost    = 25
	intentEvaluationBoost    = 15
	intentInformationalDrop  = 20

	intentTransactionalMin = 70
	intentCommercialMin    = 45
	intentConsiderationMin = 25
)

// ClassifyIntent scores a query's commercial intent on a 0-100 scale and
// buckets it. The score starts at a neutral base and moves on keyword-class
// hits; purely informational phrasing is pushed down.
func ClassifyIntent(query string) (string, int) {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		return IntentInformational, 0
	}

	score := intentBaseScore

	transactional := keywordHits(lower, transactionalKeywords)
	comparison := keywordHits(lower, comparisonKeywords)
	evaluation := keywordHits(lower, evaluationKeywords)
	informational := keywordHits(lower, informationalKeywords)

	if transactional > 0 {
		score += intentTransactionalBoost
		if transactional > 1 {
			score += 5 * (transactional - 1)
		}
	}
	if comparison > 0 {
		score += intentComparisonBoost
	}
	if evaluation > 0 {
		score += intentEvaluationBoost
	}
	if informational > 0 && transactional == 0 && comparison == 0 {
		score -= intentInformationalDrop
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	switch {
	case score >= intentTransactionalMin:
		return IntentTransactional, score
	case score >= intentCommercialMin:
		return IntentCommercialInvestigation, score
	case score >= intentConsiderationMin:
		return IntentConsideration, score
	default:
		return IntentInformational, score
	}
}

func keywordHits(lowerQuery string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if len(kw) <= shortTokenMax && !strings.Contains(kw, " ") {
			if boundaryPattern(kw).MatchString(lowerQuery) {
				hits++
			}
			continue
		}
		if strings.Contains(lowerQuery, kw) {
			hits++
		}
	}
	return hits
}
