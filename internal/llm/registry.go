package llm

import (
	"errors"
	"fmt"
	"strings"
)

// factory builds a provider client from a credential and model chain.
type factory func(apiKey string, chain []string) (Client, error)

var factories = map[string]factory{
	"openai":     func(key string, chain []string) (Client, error) { return NewOpenAI(key, chain) },
	"anthropic":  func(key string, chain []string) (Client, error) { return NewAnthropic(key, chain) },
	"gemini":     func(key string, chain []string) (Client, error) { return NewGemini(key, chain) },
	"perplexity": func(key string, chain []string) (Client, error) { return NewPerplexity(key, chain) },
}

// CanonicalName maps user-facing platform names onto registry keys.
func CanonicalName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chatgpt", "openai", "gpt":
		return "openai"
	case "claude", "anthropic":
		return "anthropic"
	case "gemini", "google", "bard":
		return "gemini"
	case "perplexity":
		return "perplexity"
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// BuildClients constructs clients for the requested platforms. Providers with
// missing credentials are excluded and reported in the second return value;
// unknown platform names are treated the same way.
func BuildClients(requested []string, keyFor func(provider string) string, chains map[string][]string) ([]Client, []string) {
	var clients []Client
	var missing []string
	seen := make(map[string]bool)

	for _, name := range requested {
		canonical := CanonicalName(name)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true

		build, ok := factories[canonical]
		if !ok {
			missing = append(missing, name)
			continue
		}
		client, err := build(keyFor(canonical), chains[canonical])
		if err != nil {
			if !errors.Is(err, ErrMissingCredentials) {
				missing = append(missing, fmt.Sprintf("%s (%v)", name, err))
				continue
			}
			missing = append(missing, name)
			continue
		}
		clients = append(clients, client)
	}
	return clients, missing
}
