package synth

import (
	"context"
	"fmt"
	"strings"

	"georepute-backend/internal/insight"
	"georepute-backend/internal/llm"
	"georepute-backend/internal/shared/telemetry"
)

// Query generation modes.
const (
	ModeAuto       = "auto"
	ModeManual     = "manual"
	ModeAutoManual = "auto+manual"
)

// Bucket is one language/region partition of the query set.
type Bucket struct {
	Language string
	Region   string
}

// Query is one synthesized end-user query. Immutable once generated; the
// commercial-intent classification is computed here, once, independent of
// any provider.
type Query struct {
	Text        string `json:"text"`
	Language    string `json:"language"`
	Region      string `json:"region,omitempty"`
	Intent      string `json:"intent"`
	IntentScore int    `json:"intent_score"`
}

// Request carries the project context needed to synthesize queries.
type Request struct {
	Brand         string
	Industry      string
	Keywords      []string
	Competitors   []string
	Mode          string
	ManualQueries []string
	Count         int
	Buckets       []Bucket
}

// Synthesizer produces the candidate query set for a run. Gen is the
// generative provider; when nil or failing, the deterministic template bank
// takes over.
type Synthesizer struct {
	Gen llm.Client
}

// Generate returns exactly req.Count queries distributed as evenly as
// possible across the buckets, remainder assigned to the first buckets.
func (s *Synthesizer) Generate(ctx context.Context, req Request) []Query {
	count := req.Count
	if count <= 0 {
		return nil
	}
	buckets := req.Buckets
	if len(buckets) == 0 {
		buckets = []Bucket{{Language: "en"}}
	}

	perBucket := count / len(buckets)
	remainder := count % len(buckets)

	var out []Query
	manual := append([]string(nil), req.ManualQueries...)

	for i, bucket := range buckets {
		want := perBucket
		if i < remainder {
			want++
		}
		if want == 0 {
			continue
		}

		var texts []string
		switch normalizeMode(req.Mode) {
		case ModeManual:
			texts, manual = takeManual(manual, want)
		case ModeAutoManual:
			texts, manual = takeManual(manual, want)
			if len(texts) < want {
				texts = append(texts, s.generated(ctx, req, bucket, want-len(texts))...)
			}
		default:
			texts = s.generated(ctx, req, bucket, want)
		}

		// Template bank backfills any shortfall so the count contract holds.
		if len(texts) < want {
			texts = append(texts, templateQueries(req, bucket, want-len(texts), len(texts))...)
		}

		for _, text := range texts[:want] {
			polished := Polish(text, bucket.Language)
			intent, score := insight.ClassifyIntent(polished)
			out = append(out, Query{
				Text:        polished,
				Language:    bucket.Language,
				Region:      bucket.Region,
				Intent:      intent,
				IntentScore: score,
			})
		}
	}
	return out
}

// generated asks the generative provider for queries; any failure logs and
// returns nothing so the template bank can fill in. Generation never blocks
// or fails a run.
func (s *Synthesizer) generated(ctx context.Context, req Request, bucket Bucket, want int) []string {
	if s.Gen == nil || want <= 0 {
		return nil
	}

	reply, err := s.Gen.Invoke(ctx, generationPrompt(req, bucket, want), bucket.Language)
	if err != nil {
		telemetry.Warn("synth.generation_failed", map[string]any{
			"provider": s.Gen.Name(),
			"language": bucket.Language,
			"error":    err.Error(),
		})
		return nil
	}

	lines := parseQueryLines(reply)
	if len(lines) > want {
		lines = lines[:want]
	}
	return lines
}

// intentCategories is the fixed taxonomy the generative prompt is
// constrained to.
var intentCategories = []string{
	"purchase-ready",
	"comparison/decision",
	"problem-to-solution",
	"ROI/pricing",
	"vendor evaluation",
	"use-case/segment",
	"alternative/switching",
	"competitive-intelligence",
}

func generationPrompt(req Request, bucket Bucket, want int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d realistic search or assistant queries that potential customers in the %s industry would ask.\n", want, orDefault(req.Industry, "software"))
	fmt.Fprintf(&b, "Queries must be in language %q", bucket.Language)
	if bucket.Region != "" {
		fmt.Fprintf(&b, " for the region %q", bucket.Region)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Cover these intent categories: %s.\n", strings.Join(intentCategories, ", "))
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Relevant topics: %s.\n", strings.Join(req.Keywords, ", "))
	}
	if len(req.Competitors) > 0 {
		fmt.Fprintf(&b, "Known vendors in the space: %s.\n", strings.Join(req.Competitors, ", "))
	}
	b.WriteString("Do not mention the brand ")
	b.WriteString(req.Brand)
	b.WriteString(" directly. Return one query per line with no numbering.")
	return b.String()
}

func parseQueryLines(reply string) []string {
	var out []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-)* ")
		line = strings.Trim(line, `"`)
		if line == "" || len(line) < 8 {
			continue
		}
		out = append(out, line)
	}
	return out
}

func takeManual(manual []string, want int) ([]string, []string) {
	n := want
	if n > len(manual) {
		n = len(manual)
	}
	return manual[:n], manual[n:]
}

func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeManual:
		return ModeManual
	case ModeAutoManual, "manual+auto", "both":
		return ModeAutoManual
	default:
		return ModeAuto
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
