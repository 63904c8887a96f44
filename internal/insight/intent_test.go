package insight

import (
	"strings"
	"testing"
)

func TestClassifyIntentBestQueryStaysBelowCommercial(t *testing.T) {
	intent, score := ClassifyIntent("What is the best CRM for startups?")
	if score >= intentCommercialMin {
		t.Fatalf("expected score < %d, got %d", intentCommercialMin, score)
	}
	if intent != IntentConsideration && intent != IntentInformational {
		t.Errorf("expected consideration or informational, got %s", intent)
	}
}

func TestClassifyIntentTransactional(t *testing.T) {
	intent, score := ClassifyIntent("Acme pricing plans and free trial")
	if intent != IntentTransactional {
		t.Errorf("expected transactional, got %s (score %d)", intent, score)
	}
}

func TestClassifyIntentComparison(t *testing.T) {
	intent, _ := ClassifyIntent("Acme vs Globex comparison")
	if intent != IntentCommercialInvestigation {
		t.Errorf("expected commercial_investigation, got %s", intent)
	}
}

func TestClassifyIntentScoreMonotonicInTransactionalHits(t *testing.T) {
	base := "which crm should my team adopt"
	prev := -1
	for i, suffix := range []string{"", " pricing", " pricing buy", " pricing buy discount"} {
		_, score := ClassifyIntent(base + suffix)
		if score < prev {
			t.Fatalf("score decreased at step %d: %d -> %d", i, prev, score)
		}
		prev = score
	}
}

func TestClassifyIntentBoundsAndEmpty(t *testing.T) {
	queries := []string{
		"",
		"buy purchase order discount deal coupon trial demo quote pricing",
		strings.Repeat("what is how to guide tutorial ", 4),
	}
	for _, q := range queries {
		_, score := ClassifyIntent(q)
		if score < 0 || score > 100 {
			t.Errorf("score out of range for %q: %d", q, score)
		}
	}
}

func TestClassifyIntentInformationalDrop(t *testing.T) {
	_, plain := ClassifyIntent("crm platforms for startups")
	_, info := ClassifyIntent("what is a crm platform")
	if info >= plain {
		t.Errorf("informational-only query should score below neutral: info=%d plain=%d", info, plain)
	}
}
