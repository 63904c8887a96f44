package insight

import (
	"context"
	"errors"
	"testing"
)

func TestAnalyzeBrandMentionedWithBoundaries(t *testing.T) {
	a := &Analyzer{}
	got := a.Analyze(context.Background(), "We compared tools; Acme came out ahead.", "Acme", nil)
	if !got.BrandMentioned {
		t.Fatal("expected brand mention")
	}
	if got.MentionPosition == nil || *got.MentionPosition != 1 {
		t.Fatalf("expected mention position 1, got %v", got.MentionPosition)
	}
	if got.QueryRelevance != RelevanceHigh {
		t.Errorf("expected high relevance, got %s", got.QueryRelevance)
	}
}

func TestAnalyzeEmptyInputsReturnNeutral(t *testing.T) {
	a := &Analyzer{}
	for _, tc := range []struct{ reply, brand string }{
		{"", "Acme"},
		{"Some reply", ""},
		{"   ", "Acme"},
	} {
		got := a.Analyze(context.Background(), tc.reply, tc.brand, []string{"Globex"})
		if got.BrandMentioned {
			t.Errorf("reply=%q brand=%q: expected no mention", tc.reply, tc.brand)
		}
		if got.QueryRelevance != RelevanceLow {
			t.Errorf("reply=%q brand=%q: expected low relevance", tc.reply, tc.brand)
		}
	}
}

func TestAnalyzeShortCircuitsWithoutAnyMention(t *testing.T) {
	called := false
	a := &Analyzer{Sentiment: func(ctx context.Context, text, brand string) (float64, error) {
		called = true
		return 0, nil
	}}

	got := a.Analyze(context.Background(), "This reply discusses unrelated vendors only.", "Acme", []string{"Globex"})
	if got.BrandMentioned || len(got.CompetitorsFound) != 0 {
		t.Fatal("expected neither brand nor competitors")
	}
	if called {
		t.Error("sentiment must not run when nothing was mentioned")
	}
	if got.SentimentScore != nil {
		t.Error("expected nil sentiment score")
	}
}

func TestAnalyzeComparisonBrandBetter(t *testing.T) {
	a := &Analyzer{}
	got := a.Analyze(context.Background(),
		"Acme is better than Globex for small teams.",
		"Acme", []string{"Globex"})

	if !got.BrandMentioned {
		t.Fatal("expected brand mention")
	}
	if len(got.CompetitorsFound) != 1 || got.CompetitorsFound[0] != "Globex" {
		t.Fatalf("expected Globex found, got %v", got.CompetitorsFound)
	}
	ctx, ok := got.CompetitorContexts["Globex"]
	if !ok {
		t.Fatal("expected competitor context for Globex")
	}
	if ctx.ComparisonResult != ComparisonBrandBetter {
		t.Errorf("expected %s, got %s", ComparisonBrandBetter, ctx.ComparisonResult)
	}
}

func TestAnalyzeComparisonCompetitorBetter(t *testing.T) {
	a := &Analyzer{}
	got := a.Analyze(context.Background(),
		"Globex is better than Acme when budgets are tight.",
		"Acme", []string{"Globex"})

	ctx := got.CompetitorContexts["Globex"]
	if ctx.ComparisonResult != ComparisonCompetitorBetter {
		t.Errorf("expected %s, got %s", ComparisonCompetitorBetter, ctx.ComparisonResult)
	}
}

func TestAnalyzeRankingListDetection(t *testing.T) {
	a := &Analyzer{}
	got := a.Analyze(context.Background(),
		"Several vendors stand out. Globex is the top choice for enterprises. Acme works well too.",
		"Acme", []string{"Globex"})

	ctx := got.CompetitorContexts["Globex"]
	if !ctx.InRankingList {
		t.Error("expected Globex flagged as ranking-list member")
	}
}

func TestAnalyzeSentimentFallbackOnError(t *testing.T) {
	a := &Analyzer{Sentiment: func(ctx context.Context, text, brand string) (float64, error) {
		return 0, errors.New("provider down")
	}}

	got := a.Analyze(context.Background(), "Acme is an excellent choice.", "Acme", nil)
	if got.SentimentScore == nil {
		t.Fatal("expected fallback sentiment score")
	}
	if *got.SentimentScore != keywordSentimentPositive {
		t.Errorf("expected %v from keyword vote, got %v", keywordSentimentPositive, *got.SentimentScore)
	}
}

func TestAnalyzeSentimentUsesPrimaryPath(t *testing.T) {
	a := &Analyzer{Sentiment: func(ctx context.Context, text, brand string) (float64, error) {
		return -0.85, nil
	}}

	got := a.Analyze(context.Background(), "Acme keeps crashing for us.", "Acme", nil)
	if got.SentimentScore == nil || *got.SentimentScore != -0.85 {
		t.Fatalf("expected primary sentiment -0.85, got %v", got.SentimentScore)
	}
}

func TestKeywordSentimentVote(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"This tool is excellent and reliable", keywordSentimentPositive},
		{"This tool is unreliable and outdated", keywordSentimentNegative},
		{"This tool is excellent but unreliable", keywordSentimentDefault},
		{"This tool exists", keywordSentimentDefault},
	}
	for _, tc := range cases {
		if got := keywordSentiment(tc.text); got != tc.want {
			t.Errorf("keywordSentiment(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
