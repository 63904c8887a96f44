package consistency

import (
	"math"
	"testing"
)

func TestAggregateNeedsTwoProviders(t *testing.T) {
	report := Aggregate([]Signal{
		{Provider: "openai", Query: "q1", BrandMentioned: true},
		{Provider: "openai", Query: "q2", BrandMentioned: false},
	})
	if report.ProviderCount != 1 {
		t.Fatalf("expected 1 provider, got %d", report.ProviderCount)
	}
	if report.BrandMentionConsistency != 0 || report.OverallConsistency != 0 || report.QueryCount != 0 {
		t.Error("single-provider report must be zeroed")
	}
}

func TestAggregateUnanimousAgreementIsOne(t *testing.T) {
	report := Aggregate([]Signal{
		{Provider: "openai", Query: "q1", BrandMentioned: true},
		{Provider: "anthropic", Query: "q1", BrandMentioned: true},
		{Provider: "openai", Query: "q2", BrandMentioned: false},
		{Provider: "anthropic", Query: "q2", BrandMentioned: false},
	})

	// Agreement either way counts: all-mention and no-mention both score 1.0.
	if report.OverallConsistency != 1.0 {
		t.Errorf("expected overall consistency 1.0, got %v", report.OverallConsistency)
	}
	if report.BrandMentionConsistency != 1.0 {
		t.Errorf("expected brand mention consistency 1.0 (only q1 counts), got %v", report.BrandMentionConsistency)
	}
	if got := report.PlatformAgreement["openai"]["anthropic"]; got != 1.0 {
		t.Errorf("expected full platform agreement, got %v", got)
	}
}

func TestAggregateSplitDecision(t *testing.T) {
	report := Aggregate([]Signal{
		{Provider: "openai", Query: "q1", BrandMentioned: true},
		{Provider: "anthropic", Query: "q1", BrandMentioned: false},
	})

	if report.OverallConsistency != 0 {
		t.Errorf("50/50 split should score 0, got %v", report.OverallConsistency)
	}
	if got := report.PlatformAgreement["anthropic"]["openai"]; got != 0 {
		t.Errorf("expected 0 agreement, got %v", got)
	}
	if report.PlatformAgreement["openai"]["anthropic"] != report.PlatformAgreement["anthropic"]["openai"] {
		t.Error("platform agreement must be symmetric")
	}
}

func TestAggregateConsistencyBounds(t *testing.T) {
	signals := []Signal{
		{Provider: "a", Query: "q1", BrandMentioned: true},
		{Provider: "b", Query: "q1", BrandMentioned: true},
		{Provider: "c", Query: "q1", BrandMentioned: false},
		{Provider: "a", Query: "q2", BrandMentioned: false},
		{Provider: "b", Query: "q2", BrandMentioned: true},
		{Provider: "c", Query: "q2", BrandMentioned: false},
	}
	report := Aggregate(signals)
	for _, q := range append(report.MostConsistentQueries, report.LeastConsistentQueries...) {
		if q.Consistency < 0 || q.Consistency > 1 {
			t.Errorf("consistency out of [0,1]: %v", q.Consistency)
		}
	}
	// 2-of-3 mention: |2*(2/3)-1| = 1/3.
	want := 1.0 / 3.0
	if math.Abs(report.OverallConsistency-want) > 1e-9 {
		t.Errorf("expected overall %v, got %v", want, report.OverallConsistency)
	}
}

func TestAggregateCompetitorTracking(t *testing.T) {
	report := Aggregate([]Signal{
		{Provider: "openai", Query: "q1", BrandMentioned: true, Competitors: []string{"Globex"}},
		{Provider: "anthropic", Query: "q1", BrandMentioned: true, Competitors: []string{"Globex"}},
		{Provider: "openai", Query: "q2", BrandMentioned: false, Competitors: []string{"Globex"}},
		{Provider: "anthropic", Query: "q2", BrandMentioned: false},
	})

	stats, ok := report.CompetitorTracking["Globex"]
	if !ok {
		t.Fatal("expected Globex tracked")
	}
	if stats.TotalMentions != 3 {
		t.Errorf("expected 3 total mentions, got %d", stats.TotalMentions)
	}
	if stats.ProviderCount != 2 {
		t.Errorf("expected 2 distinct providers, got %d", stats.ProviderCount)
	}
	if stats.UnanimousQueries != 1 {
		t.Errorf("expected 1 unanimous query, got %d", stats.UnanimousQueries)
	}
}

func TestAggregateDiagnosticQueryLists(t *testing.T) {
	var signals []Signal
	queries := []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7"}
	for i, q := range queries {
		split := i%2 == 0
		signals = append(signals,
			Signal{Provider: "a", Query: q, BrandMentioned: true},
			Signal{Provider: "b", Query: q, BrandMentioned: !split},
		)
	}

	report := Aggregate(signals)
	if len(report.MostConsistentQueries) != 5 {
		t.Fatalf("expected 5 most-consistent queries, got %d", len(report.MostConsistentQueries))
	}
	if len(report.LeastConsistentQueries) != 5 {
		t.Fatalf("expected 5 least-consistent queries, got %d", len(report.LeastConsistentQueries))
	}
	if report.MostConsistentQueries[0].Consistency < report.LeastConsistentQueries[0].Consistency {
		t.Error("most-consistent list should start at the higher score")
	}
}
