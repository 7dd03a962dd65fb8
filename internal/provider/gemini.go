// Package provider talks to the generative content service that writes
// lessons, chat replies and coaching summaries.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Part is one text fragment of a content turn.
type Part struct {
	Text string `json:"text"`
}

// Content is a single turn sent to the model. Role is "user" or "model".
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerateRequest describes one generation call.
type GenerateRequest struct {
	Model    string
	System   string
	Contents []Content

	// Structured output. Both are empty for plain text calls.
	ResponseMIMEType string
	ResponseSchema   map[string]any
}

// Generator performs a single generation call and returns the model text.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

var (
	ErrEmptyResponse = errors.New("model returned no candidates")
	ErrBlocked       = errors.New("prompt blocked")
)

// HTTPError is a non-2xx answer from the content service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

// GeminiClient calls the generateContent endpoint over plain HTTPS.
// It makes exactly one request per call and sets no timeout of its own.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Ensure GeminiClient implements Generator.
var _ Generator = (*GeminiClient)(nil)

// NewGeminiClient creates a client. A nil httpClient uses a client without timeout.
func NewGeminiClient(baseURL, apiKey string, httpClient *http.Client) *GeminiClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GeminiClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type generationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateContentRequest struct {
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends req and returns the concatenated text of the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", errors.New("model required")
	}

	body := generateContentRequest{Contents: req.Contents}
	if req.System != "" {
		body.SystemInstruction = &Content{Parts: []Part{{Text: req.System}}}
	}
	if req.ResponseMIMEType != "" || req.ResponseSchema != nil {
		body.GenerationConfig = &generationConfig{
			ResponseMIMEType: req.ResponseMIMEType,
			ResponseSchema:   req.ResponseSchema,
		}
	}

	path := "/v1beta/models/" + url.PathEscape(req.Model) + ":generateContent"
	raw, err := c.doOnce(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", err
	}

	var resp generateContentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("gemini decode error: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (c *GeminiClient) doOnce(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
