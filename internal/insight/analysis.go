package insight

// Query relevance levels.
const (
	RelevanceHigh   = "high"
	RelevanceMedium = "medium"
	RelevanceLow    = "low"
)

// Commercial-intent buckets, ordered by purchase proximity.
const (
	IntentTransactional           = "transactional"
	IntentCommercialInvestigation = "commercial_investigation"
	IntentConsideration           = "consideration"
	IntentInformational           = "informational"
)

// Comparison outcomes for a competitor context.
const (
	ComparisonBrandBetter      = "brand_better"
	ComparisonBrandWorse       = "brand_worse"
	ComparisonCompetitorBetter = "competitor_better"
	ComparisonCompetitorWorse  = "competitor_worse"
	ComparisonNeutral          = "neutral"
)

// Source is a URL extracted from a reply.
type Source struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Title  string `json:"title,omitempty"`
}

// CompetitorContext captures how one competitor appears in a reply.
type CompetitorContext struct {
	Sentences        []string `json:"sentences"`
	ComparisonResult string   `json:"comparison_result"`
	Sentiment        float64  `json:"sentiment"`
	InRankingList    bool     `json:"in_ranking_list"`
}

// Analysis is the structured signal record derived from one raw reply.
type Analysis struct {
	BrandMentioned     bool                         `json:"brand_mentioned"`
	MentionPosition    *int                         `json:"mention_position"`
	MentionContext     string                       `json:"mention_context,omitempty"`
	AllBrandMentions   []string                     `json:"all_brand_mentions,omitempty"`
	SentimentScore     *float64                     `json:"sentiment_score"`
	CompetitorsFound   []string                     `json:"competitors_found"`
	CompetitorContexts map[string]CompetitorContext `json:"competitor_contexts,omitempty"`
	Sources            []Source                     `json:"sources,omitempty"`
	QueryRelevance     string                       `json:"query_relevance"`
}

// neutralAnalysis is the degenerate record for empty or unanalyzable input.
func neutralAnalysis() Analysis {
	return Analysis{
		BrandMentioned:   false,
		CompetitorsFound: []string{},
		QueryRelevance:   RelevanceLow,
	}
}
