// Package gateway provides an HTTP client for the session gateway API.
package gateway

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
	"time"

	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/engine"
)

// Client talks to the gateway. It is both the session store and the GM
// completion for a terminal client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new gateway client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var (
	_ engine.SessionStore = (*Client)(nil)
	_ engine.Completion   = (*Client)(nil)
)

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	GeminiAPIKey   string `json:"geminiApiKey"`
	StartingPrompt string `json:"startingPrompt"`
}

// SessionResponse wraps a session record.
type SessionResponse struct {
	Session *domain.Session `json:"session"`
}

// GenerateRequest is the body of POST /api/gemini.
type GenerateRequest struct {
	Prompt      string           `json:"prompt"`
	APIKey      string           `json:"apiKey"`
	ChatHistory []domain.Message `json:"chatHistory"`
}

// GenerateResponse carries the GM reply.
type GenerateResponse struct {
	Response string `json:"response"`
}

// ErrorResponse represents an error response from the gateway.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Create calls POST /api/sessions.
func (c *Client) Create(ctx context.Context, llmKey, startingPrompt string) (*domain.Session, error) {
	var out SessionResponse
	status, err := c.do(ctx, http.MethodPost, "/api/sessions", &CreateSessionRequest{
		GeminiAPIKey:   llmKey,
		StartingPrompt: startingPrompt,
	}, &out)
	if err != nil {
		return nil, &domain.TransportError{Op: "create session", Status: status, Err: err}
	}
	if out.Session == nil {
		return nil, &domain.TransportError{Op: "create session", Status: status, Err: errors.New("empty response")}
	}
	return out.Session, nil
}

// Get calls GET /api/sessions/:id.
func (c *Client) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var out SessionResponse
	status, err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), nil, &out)
	if err != nil {
		return nil, &domain.TransportError{Op: "get session", Status: status, Err: err}
	}
	if out.Session == nil {
		return nil, &domain.TransportError{Op: "get session", Status: status, Err: errors.New("empty response")}
	}
	return out.Session, nil
}

// Update calls PUT /api/sessions/:id with only the fields in patch.
func (c *Client) Update(ctx context.Context, sessionID string, patch *domain.SessionPatch) (*domain.Session, error) {
	var out SessionResponse
	status, err := c.do(ctx, http.MethodPut, "/api/sessions/"+url.PathEscape(sessionID), patch, &out)
	if err != nil {
		return nil, &domain.TransportError{Op: "update session", Status: status, Err: err}
	}
	return out.Session, nil
}

// Generate calls POST /api/gemini. Upstream failures come back as
// *domain.CompletionError carrying the upstream status.
func (c *Client) Generate(ctx context.Context, prompt, llmKey string, prior []domain.Message) (string, error) {
	if prior == nil {
		prior = []domain.Message{}
	}
	var out GenerateResponse
	status, err := c.do(ctx, http.MethodPost, "/api/gemini", &GenerateRequest{
		Prompt:      prompt,
		APIKey:      llmKey,
		ChatHistory: prior,
	}, &out)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return "", &domain.CompletionError{Status: status, Message: apiErr.msg}
		}
		if status != 0 {
			return "", &domain.CompletionError{Status: status, Message: err.Error()}
		}
		return "", &domain.TransportError{Op: "generate", Status: status, Err: err}
	}
	return out.Response, nil
}

type apiError struct {
	msg string
}

func (e *apiError) Error() string { return e.msg }

// do sends body as JSON and decodes a 2xx reply into out. It returns the
// HTTP status when one was received.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/api/sessions/") {
			return resp.StatusCode, domain.ErrSessionNotFound
		}
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return resp.StatusCode, &apiError{msg: errResp.Error}
		}
		return resp.StatusCode, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
