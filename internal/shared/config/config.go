package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port                string
	CORSAllowOrigin     []string
	DatabaseURL         string
	Env                 string
	BatchSize           int
	TaskConcurrency     int
	MaxQueriesPerRun    int
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	GeminiAPIKey        string
	PerplexityAPIKey    string
	ProvidersConfigPath string
	ChainQueueURL       string
	CompetitorEngineURL string
	SynthesisProvider   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:         dbURL,
		Env:                 env,
		BatchSize:           getEnvInt("GR_BATCH_SIZE", 5),
		TaskConcurrency:     getEnvInt("GR_TASK_CONCURRENCY", 6),
		MaxQueriesPerRun:    getEnvInt("GR_MAX_QUERIES", 50),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		PerplexityAPIKey:    os.Getenv("PERPLEXITY_API_KEY"),
		ProvidersConfigPath: getEnv("GR_PROVIDERS_CONFIG", ""),
		ChainQueueURL:       getEnv("GR_SQS_QUEUE_URL", ""),
		CompetitorEngineURL: getEnv("GR_COMPETITOR_ENGINE_URL", ""),
		SynthesisProvider:   getEnv("GR_SYNTH_PROVIDER", "openai"),
	}
}

// APIKeyFor returns the credential for a provider name, empty when unset.
func (c Config) APIKeyFor(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai", "chatgpt":
		return c.OpenAIAPIKey
	case "anthropic", "claude":
		return c.AnthropicAPIKey
	case "gemini", "google":
		return c.GeminiAPIKey
	case "perplexity":
		return c.PerplexityAPIKey
	default:
		return ""
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
