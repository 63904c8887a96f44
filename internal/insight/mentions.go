package insight

import (
	"regexp"
	"strings"
	"sync"
)

// shortTokenMax is the variation length at or below which matching requires
// explicit word boundaries. Short brand tokens ("Uzi") are common substrings
// of unrelated words; longer tokens are not, so substring containment is
// enough for them.
const shortTokenMax = 4

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"inc": true, "llc": true, "ltd": true, "corp": true, "group": true,
	"company": true, "software": true, "solutions": true, "services": true,
	"technologies": true, "systems": true, "labs": true, "app": true,
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	nonWordStrip  = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	wordSplit     = regexp.MustCompile(`\s+`)

	boundaryMemoMu sync.Mutex
	boundaryMemo   = map[string]*regexp.Regexp{}
)

// Variations builds the normalized variation set for a name: the lowercase
// full string, a whitespace-stripped variant, a punctuation-stripped variant,
// and individual word variants. Word variants are always kept for single-word
// names; for multi-word names only words of five or more characters outside
// the stop-word set qualify.
func Variations(name string) []string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return nil
	}

	set := map[string]bool{lower: true}
	if squashed := strings.Join(wordSplit.Split(lower, -1), ""); squashed != "" {
		set[squashed] = true
	}
	if stripped := strings.TrimSpace(nonWordStrip.ReplaceAllString(lower, "")); stripped != "" {
		set[stripped] = true
	}

	words := wordSplit.Split(lower, -1)
	if len(words) == 1 {
		set[words[0]] = true
	} else {
		for _, w := range words {
			w = nonWordStrip.ReplaceAllString(w, "")
			if len(w) >= 5 && !stopWords[w] {
				set[w] = true
			}
		}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// ContainsVariation reports whether the lowercase text contains any of the
// variations, applying the short-token word-boundary rule.
func ContainsVariation(lowerText string, variations []string) bool {
	for _, v := range variations {
		if matchVariation(lowerText, v) {
			return true
		}
	}
	return false
}

func matchVariation(lowerText, variation string) bool {
	if variation == "" {
		return false
	}
	if len(variation) <= shortTokenMax {
		return boundaryPattern(variation).MatchString(lowerText)
	}
	return strings.Contains(lowerText, variation)
}

func boundaryPattern(variation string) *regexp.Regexp {
	boundaryMemoMu.Lock()
	defer boundaryMemoMu.Unlock()
	if re, ok := boundaryMemo[variation]; ok {
		return re
	}
	re := regexp.MustCompile(`(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(variation) + `($|[^\p{L}\p{N}])`)
	boundaryMemo[variation] = re
	return re
}

// SplitSentences splits a reply into trimmed, non-empty sentences.
func SplitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

const maxRetainedMentions = 10

// brandMentions walks the sentences and returns the 1-based position of the
// first sentence containing a brand variation, that sentence, and all
// matching sentences (capped).
func brandMentions(sentences []string, variations []string) (position int, context string, all []string) {
	for i, sentence := range sentences {
		if !ContainsVariation(strings.ToLower(sentence), variations) {
			continue
		}
		if position == 0 {
			position = i + 1
			context = sentence
		}
		if len(all) < maxRetainedMentions {
			all = append(all, sentence)
		}
	}
	return position, context, all
}
