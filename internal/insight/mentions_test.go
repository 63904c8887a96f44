package insight

import (
	"strings"
	"testing"
)

func TestVariationsSingleWord(t *testing.T) {
	vars := Variations("Acme")
	if !containsString(vars, "acme") {
		t.Fatalf("expected lowercase variant, got %v", vars)
	}
}

func TestVariationsMultiWordSkipsStopWordsAndShortWords(t *testing.T) {
	vars := Variations("Acme Software Inc")
	if containsString(vars, "inc") {
		t.Errorf("stop word 'inc' should not be a variant: %v", vars)
	}
	if !containsString(vars, "acme software inc") {
		t.Errorf("full lowercase string missing: %v", vars)
	}
	if !containsString(vars, "acmesoftwareinc") {
		t.Errorf("whitespace-stripped variant missing: %v", vars)
	}
}

func TestShortTokenRequiresWordBoundary(t *testing.T) {
	vars := Variations("Uzi")

	if ContainsVariation(strings.ToLower("Uziel is a common given name."), vars) {
		t.Error("substring inside a longer word must not match a short token")
	}
	if !ContainsVariation(strings.ToLower("The Uzi is well known."), vars) {
		t.Error("standalone short token must match")
	}
	if !ContainsVariation(strings.ToLower("Have you tried Uzi?"), vars) {
		t.Error("short token followed by punctuation must match")
	}
	if !ContainsVariation(strings.ToLower("Uzi leads the market."), vars) {
		t.Error("short token at start of text must match")
	}
}

func TestLongTokenMatchesBySubstring(t *testing.T) {
	vars := Variations("Salesforce")
	if !ContainsVariation("many teams standardize on salesforce's platform", vars) {
		t.Error("long token should match by containment")
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("First one. Second!  Third? ")
	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %v", len(got), got)
	}
	if got[1] != "Second" {
		t.Errorf("expected trimmed sentence, got %q", got[1])
	}
}

func TestBrandMentionsPositionIsOneBased(t *testing.T) {
	sentences := SplitSentences("Nothing here. Acme appears now. Acme again.")
	pos, ctx, all := brandMentions(sentences, Variations("Acme"))
	if pos != 2 {
		t.Errorf("expected position 2, got %d", pos)
	}
	if ctx != "Acme appears now" {
		t.Errorf("unexpected mention context %q", ctx)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 retained mentions, got %d", len(all))
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
