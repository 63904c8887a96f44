package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts a chat-completion provider queried for brand visibility.
type Client interface {
	// Name returns the canonical provider name (e.g. "openai").
	Name() string
	// Invoke sends one end-user query and returns the raw reply text.
	Invoke(ctx context.Context, query, language string) (string, error)
}

// ErrMissingCredentials is returned by constructors when the provider's API
// key is not configured. Callers exclude the provider rather than failing.
var ErrMissingCredentials = errors.New("missing provider credentials")

// APIError is a non-2xx reply from a provider endpoint. Retry policy keys off
// the status code: 4xx is a client/config problem and is never retried.
type APIError struct {
	Provider string
	Model    string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("%s %s: http status %d: %s", e.Provider, e.Model, e.Status, body)
}

// IsClientError reports whether the status is in the 4xx range.
func (e *APIError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// invoker sends one query to one concrete model.
type invoker func(ctx context.Context, model, query, language string) (string, error)

// invokeChain walks an ordered model-fallback chain, trying each model until
// one returns a usable reply. Every model attempt is wrapped in the shared
// retry envelope.
func invokeChain(ctx context.Context, provider string, chain []string, call invoker, query, language string) (string, error) {
	if len(chain) == 0 {
		return "", fmt.Errorf("%s: no models configured", provider)
	}
	var lastErr error
	for _, model := range chain {
		text, err := withRetry(ctx, func(ctx context.Context) (string, error) {
			return call(ctx, model, query, language)
		})
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%s: all models failed: %w", provider, lastErr)
}
