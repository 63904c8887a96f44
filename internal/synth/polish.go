package synth

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// interrogativeMarkers detects question-like openings per language. A query
// that reads as a question gets a question mark instead of a period. The
// markers end in (\s|$) rather than \b because RE2's word boundary is ASCII
// only and never fires after accented runes like qué or où.
var interrogativeMarkers = map[string]*regexp.Regexp{
	"en": regexp.MustCompile(`(?i)^(what|which|how|why|when|where|who|is|are|do|does|can|should|will)(\s|$)`),
	"es": regexp.MustCompile(`(?i)^(qué|que|cuál|cual|cómo|como|por qué|cuándo|dónde|quién|es|son|puedo|debería)(\s|$)`),
	"fr": regexp.MustCompile(`(?i)^(quel|quelle|quels|quelles|comment|pourquoi|quand|où|qui|est-ce|peut-on|combien)(\s|$)`),
	"de": regexp.MustCompile(`(?i)^(was|welche|welcher|welches|wie|warum|wann|wo|wer|ist|sind|kann|sollte)(\s|$)`),
	"pt": regexp.MustCompile(`(?i)^(qual|quais|como|por que|porque|quando|onde|quem|é|são|posso|devo)(\s|$)`),
	"it": regexp.MustCompile(`(?i)^(quale|quali|come|perché|perche|quando|dove|chi|è|sono|posso|qual)(\s|$)`),
}

// Polish normalizes a raw query: first letter capitalized, terminal
// punctuation present, and a question mark when the language's interrogative
// markers fire.
func Polish(text, language string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	r, size := utf8.DecodeRuneInString(text)
	if unicode.IsLower(r) {
		text = string(unicode.ToUpper(r)) + text[size:]
	}

	if strings.HasSuffix(text, "?") || strings.HasSuffix(text, "!") {
		return text
	}
	text = strings.TrimRight(text, ".")

	if marker, ok := interrogativeMarkers[normalizeLang(language)]; ok && marker.MatchString(text) {
		return text + "?"
	}
	return text + "."
}

func normalizeLang(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return "en"
	}
	return lang
}
