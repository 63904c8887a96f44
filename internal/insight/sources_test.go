package insight

import "testing"

func TestExtractSourcesBareAndMarkdown(t *testing.T) {
	text := "See [the Acme docs](https://docs.acme.com/start) and https://www.example.org/reviews. for details."
	sources := ExtractSources(text)
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d: %v", len(sources), sources)
	}

	byDomain := map[string]Source{}
	for _, s := range sources {
		byDomain[s.Domain] = s
	}

	docs, ok := byDomain["docs.acme.com"]
	if !ok {
		t.Fatal("missing docs.acme.com source")
	}
	if docs.Title != "the Acme docs" {
		t.Errorf("expected markdown link text as title, got %q", docs.Title)
	}

	example, ok := byDomain["example.org"]
	if !ok {
		t.Fatal("missing example.org source (www and trailing dot should be stripped)")
	}
	if example.Title != "" {
		t.Errorf("bare URL should have no title, got %q", example.Title)
	}
}

func TestExtractSourcesDeduplicates(t *testing.T) {
	text := "https://acme.com/a then again https://acme.com/a"
	if got := ExtractSources(text); len(got) != 1 {
		t.Fatalf("expected 1 deduplicated source, got %d", len(got))
	}
}

func TestExtractSourcesEmpty(t *testing.T) {
	if got := ExtractSources("no links here"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
