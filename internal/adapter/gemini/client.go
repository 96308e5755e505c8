// Package gemini calls the Gemini generateContent API on behalf of the
// gateway.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/engine"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash-preview-05-20"
)

// ErrNoContent is the message returned when Gemini produced no candidate.
const ErrNoContent = "No content generated."

// Client is the Gemini REST client.
type Client struct {
	baseURL    string
	model      string
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewClient creates a new Gemini client. A nil limiter disables throttling.
func NewClient(baseURL, model string, timeout time.Duration, limiter *rate.Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		limiter: limiter,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ensure Client implements engine.Completion.
var _ engine.Completion = (*Client)(nil)

// Content is one turn of the conversation sent upstream.
type Content struct {
	Role  string        `json:"role"`
	Parts []domain.Part `json:"parts"`
}

// GenerationConfig controls sampling.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GenerateContentRequest is the generateContent request body.
type GenerateContentRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// DefaultGenerationConfig is used for every request.
var DefaultGenerationConfig = GenerationConfig{
	Temperature:     0.7,
	TopK:            1,
	TopP:            1,
	MaxOutputTokens: 8192,
}

// Generate sends prior followed by prompt and returns the first candidate's
// text.
func (c *Client) Generate(ctx context.Context, prompt, apiKey string, prior []domain.Message) (string, error) {
	if apiKey == "" {
		return "", &domain.CompletionError{Status: http.StatusBadRequest, Message: "API key is required"}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}

	contents := make([]Content, 0, len(prior)+1)
	for _, m := range prior {
		contents = append(contents, Content{Role: string(m.Role), Parts: m.Parts})
	}
	contents = append(contents, Content{Role: string(domain.RoleUser), Parts: []domain.Part{{Text: prompt}}})

	body, err := json.Marshal(&GenerateContentRequest{Contents: contents, GenerationConfig: DefaultGenerationConfig})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		}
		return "", &domain.CompletionError{Status: resp.StatusCode, Message: msg}
	}

	text := gjson.GetBytes(respBody, "candidates.0.content.parts.0.text")
	if !text.Exists() {
		return "", &domain.CompletionError{Message: ErrNoContent}
	}
	return text.String(), nil
}
