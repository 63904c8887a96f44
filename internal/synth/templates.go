package synth

import "strings"

// templateBank is the deterministic fallback used when no generative provider
// is reachable. Placeholders: {industry}, {keyword}, {competitor}.
var templateBank = []string{
	"What is the best {industry} solution for small businesses",
	"{keyword} pricing comparison",
	"How to choose a {industry} provider",
	"Top {industry} companies in 2025",
	"{keyword} reviews and ratings",
	"Affordable alternatives to {competitor}",
	"Which {industry} tool has the best ROI",
	"{keyword} for startups",
	"Is it worth switching from {competitor}",
	"How do {industry} platforms compare on features",
	"Best {keyword} for enterprise teams",
	"What do customers say about {industry} vendors",
}

// templateQueries fills count queries from the bank, rotating placeholders
// through the project's keywords and competitors. offset shifts the starting
// template so successive backfills within one bucket do not repeat.
func templateQueries(req Request, bucket Bucket, count, offset int) []string {
	if count <= 0 {
		return nil
	}

	industry := strings.TrimSpace(req.Industry)
	if industry == "" {
		industry = "software"
	}

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		tmpl := templateBank[(offset+i)%len(templateBank)]

		text := strings.ReplaceAll(tmpl, "{industry}", industry)
		text = strings.ReplaceAll(text, "{keyword}", pick(req.Keywords, i, industry))
		text = strings.ReplaceAll(text, "{competitor}", pick(req.Competitors, i, industry+" tools"))
		out = append(out, text)
	}
	return out
}

func pick(list []string, i int, fallback string) string {
	if len(list) == 0 {
		return fallback
	}
	return list[i%len(list)]
}
