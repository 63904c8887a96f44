package insight

import (
	"net/url"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

var (
	strictURLs   = xurls.Strict()
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
)

const maxSources = 20

// ExtractSources pulls cited URLs out of a reply. Markdown links contribute
// their link text as the source title; bare URLs come back title-less.
func ExtractSources(text string) []Source {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	titles := make(map[string]string)
	for _, m := range markdownLink.FindAllStringSubmatch(text, -1) {
		titles[strings.TrimRight(m[2], ".,;:")] = strings.TrimSpace(m[1])
	}

	seen := make(map[string]bool)
	var out []Source
	for _, raw := range strictURLs.FindAllString(text, -1) {
		raw = strings.TrimRight(raw, ".,;:)")
		if seen[raw] {
			continue
		}
		seen[raw] = true

		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			continue
		}
		out = append(out, Source{
			URL:    raw,
			Domain: strings.TrimPrefix(strings.ToLower(parsed.Host), "www."),
			Title:  titles[raw],
		})
		if len(out) >= maxSources {
			break
		}
	}
	return out
}
