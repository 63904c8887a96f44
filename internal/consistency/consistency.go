package consistency

import (
	"math"
	"sort"
)

// Signal is the per-response input to aggregation: what one provider said
// about one query.
type Signal struct {
	Provider       string
	Query          string
	BrandMentioned bool
	Competitors    []string
}

// QueryScore pairs a query with its cross-provider consistency.
type QueryScore struct {
	Query       string  `json:"query"`
	Consistency float64 `json:"consistency"`
	MentionRate float64 `json:"mention_rate"`
}

// CompetitorStats tracks how consistently a competitor surfaces.
type CompetitorStats struct {
	TotalMentions    int     `json:"total_mentions"`
	ProviderCount    int     `json:"provider_count"`
	UnanimousQueries int     `json:"unanimous_queries"`
	Consistency      float64 `json:"consistency"`
}

// Report is the cross-provider agreement summary for a run.
type Report struct {
	ProviderCount           int                           `json:"provider_count"`
	QueryCount              int                           `json:"query_count"`
	BrandMentionConsistency float64                       `json:"brand_mention_consistency"`
	OverallConsistency      float64                       `json:"overall_consistency"`
	PlatformAgreement       map[string]map[string]float64 `json:"platform_agreement"`
	CompetitorTracking      map[string]CompetitorStats    `json:"competitor_tracking"`
	MostConsistentQueries   []QueryScore                  `json:"most_consistent_queries"`
	LeastConsistentQueries  []QueryScore                  `json:"least_consistent_queries"`
}

const diagnosticQueryCount = 5

// Aggregate computes cross-provider agreement statistics. It needs at least
// two providers with data; anything less yields a zeroed report.
func Aggregate(signals []Signal) Report {
	providers := map[string]bool{}
	for _, s := range signals {
		providers[s.Provider] = true
	}

	report := Report{
		ProviderCount:      len(providers),
		PlatformAgreement:  map[string]map[string]float64{},
		CompetitorTracking: map[string]CompetitorStats{},
	}
	if len(providers) < 2 {
		return report
	}

	// query -> provider -> brand mentioned
	byQuery := map[string]map[string]bool{}
	// query -> provider -> set of competitors mentioned
	compByQuery := map[string]map[string]map[string]bool{}
	for _, s := range signals {
		if byQuery[s.Query] == nil {
			byQuery[s.Query] = map[string]bool{}
			compByQuery[s.Query] = map[string]map[string]bool{}
		}
		byQuery[s.Query][s.Provider] = s.BrandMentioned
		compSet := map[string]bool{}
		for _, c := range s.Competitors {
			compSet[c] = true
		}
		compByQuery[s.Query][s.Provider] = compSet
	}

	report.QueryCount = len(byQuery)

	var scores []QueryScore
	var consistencySum float64
	var mentionedConsistencySum float64
	mentionedQueries := 0

	for query, perProvider := range byQuery {
		mentions := 0
		for _, mentioned := range perProvider {
			if mentioned {
				mentions++
			}
		}
		fraction := float64(mentions) / float64(len(perProvider))
		consistency := math.Abs(2*fraction - 1)

		scores = append(scores, QueryScore{Query: query, Consistency: consistency, MentionRate: fraction})
		consistencySum += consistency
		if mentions > 0 {
			mentionedConsistencySum += consistency
			mentionedQueries++
		}
	}

	if len(scores) > 0 {
		report.OverallConsistency = consistencySum / float64(len(scores))
	}
	if mentionedQueries > 0 {
		report.BrandMentionConsistency = mentionedConsistencySum / float64(mentionedQueries)
	}

	report.PlatformAgreement = platformAgreement(byQuery, providers)
	report.CompetitorTracking = competitorTracking(compByQuery)

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Consistency != scores[j].Consistency {
			return scores[i].Consistency > scores[j].Consistency
		}
		return scores[i].Query < scores[j].Query
	})
	report.MostConsistentQueries = topN(scores, diagnosticQueryCount)

	reversed := make([]QueryScore, len(scores))
	copy(reversed, scores)
	sort.Slice(reversed, func(i, j int) bool {
		if reversed[i].Consistency != reversed[j].Consistency {
			return reversed[i].Consistency < reversed[j].Consistency
		}
		return reversed[i].Query < reversed[j].Query
	})
	report.LeastConsistentQueries = topN(reversed, diagnosticQueryCount)

	return report
}

// platformAgreement computes the symmetric pairwise fraction of shared
// queries on which two providers agree about the brand-mentioned boolean.
func platformAgreement(byQuery map[string]map[string]bool, providers map[string]bool) map[string]map[string]float64 {
	names := make([]string, 0, len(providers))
	for p := range providers {
		names = append(names, p)
	}
	sort.Strings(names)

	out := map[string]map[string]float64{}
	for _, p := range names {
		out[p] = map[string]float64{}
	}

	for i, p1 := range names {
		for _, p2 := range names[i+1:] {
			shared, agreed := 0, 0
			for _, perProvider := range byQuery {
				m1, ok1 := perProvider[p1]
				m2, ok2 := perProvider[p2]
				if !ok1 || !ok2 {
					continue
				}
				shared++
				if m1 == m2 {
					agreed++
				}
			}
			var score float64
			if shared > 0 {
				score = float64(agreed) / float64(shared)
			}
			out[p1][p2] = score
			out[p2][p1] = score
		}
	}
	return out
}

func competitorTracking(compByQuery map[string]map[string]map[string]bool) map[string]CompetitorStats {
	type tally struct {
		total          int
		providers      map[string]bool
		unanimous      int
		consistencySum float64
		queries        int
	}
	tallies := map[string]*tally{}

	for _, perProvider := range compByQuery {
		providerCount := len(perProvider)
		perCompetitor := map[string]int{}
		for provider, comps := range perProvider {
			for comp := range comps {
				perCompetitor[comp]++
				t := tallies[comp]
				if t == nil {
					t = &tally{providers: map[string]bool{}}
					tallies[comp] = t
				}
				t.total++
				t.providers[provider] = true
			}
		}
		for comp, mentions := range perCompetitor {
			t := tallies[comp]
			fraction := float64(mentions) / float64(providerCount)
			t.consistencySum += math.Abs(2*fraction - 1)
			t.queries++
			if mentions == providerCount {
				t.unanimous++
			}
		}
	}

	out := map[string]CompetitorStats{}
	for comp, t := range tallies {
		stats := CompetitorStats{
			TotalMentions:    t.total,
			ProviderCount:    len(t.providers),
			UnanimousQueries: t.unanimous,
		}
		if t.queries > 0 {
			stats.Consistency = t.consistencySum / float64(t.queries)
		}
		out[comp] = stats
	}
	return out
}

func topN(scores []QueryScore, n int) []QueryScore {
	if len(scores) < n {
		n = len(scores)
	}
	out := make([]QueryScore, n)
	copy(out, scores[:n])
	return out
}
