package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// Anthropic implements Client using the Anthropic Messages API.
type Anthropic struct {
	apiKey     string
	chain      []string
	apiURL     string
	httpClient *http.Client
}

// NewAnthropic constructs an Anthropic client.
func NewAnthropic(apiKey string, chain []string) (*Anthropic, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredentials
	}
	return &Anthropic{
		apiKey:     apiKey,
		chain:      chain,
		apiURL:     anthropicAPIURL,
		httpClient: &http.Client{Timeout: providerTimeout()},
	}, nil
}

func (c *Anthropic) Name() string { return "anthropic" }

// Invoke sends the query through the model-fallback chain.
func (c *Anthropic) Invoke(ctx context.Context, query, language string) (string, error) {
	return invokeChain(ctx, c.Name(), c.chain, c.invokeModel, query, language)
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Anthropic) invokeModel(ctx context.Context, model, query, language string) (string, error) {
	reqBody := anthropicRequest{
		Model:     model,
		MaxTokens: 1024,
		System:    assistantSystemPrompt(language),
		Messages: []chatMessage{
			{Role: "user", Content: query},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Provider: c.Name(), Model: model, Status: resp.StatusCode, Body: string(body)}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("anthropic response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}

	var b strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", fmt.Errorf("anthropic response empty content")
	}
	return content, nil
}

var _ Client = (*Anthropic)(nil)
