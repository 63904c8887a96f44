package llm

import (
	"context"
	"net/http"
	"strings"
)

const perplexityAPIURL = "https://api.perplexity.ai/chat/completions"

// Perplexity implements Client using the Perplexity chat API, which is
// wire-compatible with OpenAI Chat Completions.
type Perplexity struct {
	apiKey     string
	chain      []string
	apiURL     string
	httpClient *http.Client
}

// NewPerplexity constructs a Perplexity client.
func NewPerplexity(apiKey string, chain []string) (*Perplexity, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredentials
	}
	return &Perplexity{
		apiKey:     apiKey,
		chain:      chain,
		apiURL:     perplexityAPIURL,
		httpClient: &http.Client{Timeout: providerTimeout()},
	}, nil
}

func (c *Perplexity) Name() string { return "perplexity" }

// Invoke sends the query through the model-fallback chain.
func (c *Perplexity) Invoke(ctx context.Context, query, language string) (string, error) {
	return invokeChain(ctx, c.Name(), c.chain, c.invokeModel, query, language)
}

func (c *Perplexity) invokeModel(ctx context.Context, model, query, language string) (string, error) {
	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: assistantSystemPrompt(language)},
			{Role: "user", Content: query},
		},
		MaxTokens: 1024,
	}
	return postChatCompletions(ctx, c.httpClient, c.Name(), model, c.apiURL, reqBody, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
}

var _ Client = (*Perplexity)(nil)
