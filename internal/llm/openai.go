package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI implements Client using the OpenAI Chat Completions API.
type OpenAI struct {
	apiKey     string
	chain      []string
	apiURL     string
	httpClient *http.Client
}

// NewOpenAI constructs an OpenAI client.
func NewOpenAI(apiKey string, chain []string) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredentials
	}
	return &OpenAI{
		apiKey:     apiKey,
		chain:      chain,
		apiURL:     openaiAPIURL,
		httpClient: &http.Client{Timeout: providerTimeout()},
	}, nil
}

func (c *OpenAI) Name() string { return "openai" }

// Invoke sends the query through the model-fallback chain.
func (c *OpenAI) Invoke(ctx context.Context, query, language string) (string, error) {
	return invokeChain(ctx, c.Name(), c.chain, c.invokeModel, query, language)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *OpenAI) invokeModel(ctx context.Context, model, query, language string) (string, error) {
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

// postChatCompletions performs one OpenAI-shaped chat-completion call.
// Perplexity speaks the same wire format, so both adapters share it.
func postChatCompletions(ctx context.Context, httpClient *http.Client, provider, model, url string, reqBody chatRequest, headers map[string]string) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Provider: provider, Model: model, Status: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%s response parse: %w", provider, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s error: %s (%s)", provider, parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s response missing choices", provider)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s response empty content", provider)
	}
	return content, nil
}

func assistantSystemPrompt(language string) string {
	prompt := "You are a helpful assistant answering an end-user search query. Answer naturally and mention specific products or companies when relevant."
	if lang := strings.TrimSpace(language); lang != "" && !strings.EqualFold(lang, "en") {
		prompt += " Respond in the language with code " + lang + "."
	}
	return prompt
}

func providerTimeout() time.Duration {
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("GR_PROVIDER_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return timeout
}

var _ Client = (*OpenAI)(nil)
