package llm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default model-fallback chains per provider, tried in order until one
// returns a usable reply.
var defaultChains = map[string][]string{
	"openai":     {"gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo"},
	"anthropic":  {"claude-3-5-sonnet-20241022", "claude-3-haiku-20240307"},
	"gemini":     {"gemini-1.5-pro", "gemini-1.5-flash"},
	"perplexity": {"sonar-pro", "sonar"},
}

type chainsFile struct {
	Providers map[string]struct {
		Models []string `yaml:"models"`
	} `yaml:"providers"`
}

// LoadChains returns the model chains, optionally overridden by a YAML file:
//
//	providers:
//	  openai:
//	    models: [gpt-4o-mini]
//
// An unreadable or malformed file is reported through the error, but the
// default chains are still returned so callers keep working models.
func LoadChains(path string) (map[string][]string, error) {
	chains := make(map[string][]string, len(defaultChains))
	for name, models := range defaultChains {
		chains[name] = append([]string(nil), models...)
	}
	if path == "" {
		return chains, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return chains, fmt.Errorf("read providers config: %w", err)
	}
	var parsed chainsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return chains, fmt.Errorf("parse providers config: %w", err)
	}
	for name, entry := range parsed.Providers {
		if len(entry.Models) > 0 {
			chains[name] = append([]string(nil), entry.Models...)
		}
	}
	return chains, nil
}
