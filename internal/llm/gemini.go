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

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini implements Client using the Google Generative Language API.
type Gemini struct {
	apiKey     string
	chain      []string
	apiBase    string
	httpClient *http.Client
}

// NewGemini constructs a Gemini client.
func NewGemini(apiKey string, chain []string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredentials
	}
	return &Gemini{
		apiKey:     apiKey,
		chain:      chain,
		apiBase:    geminiAPIBase,
		httpClient: &http.Client{Timeout: providerTimeout()},
	}, nil
}

func (c *Gemini) Name() string { return "gemini" }

// Invoke sends the query through the model-fallback chain.
func (c *Gemini) Invoke(ctx context.Context, query, language string) (string, error) {
	return invokeChain(ctx, c.Name(), c.chain, c.invokeModel, query, language)
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Gemini) invokeModel(ctx context.Context, model, query, language string) (string, error) {
	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: assistantSystemPrompt(language)}},
		},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: query}}},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.apiBase, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

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

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gemini response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini error: %s (code %d)", parsed.Error.Message, parsed.Error.Code)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini response missing candidates")
	}

	var b strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", fmt.Errorf("gemini response empty content")
	}
	return content, nil
}

var _ Client = (*Gemini)(nil)
