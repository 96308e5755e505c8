package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

// GenerateRequest is the request for a GM completion.
type GenerateRequest struct {
	Prompt      string           `json:"prompt"`
	APIKey      string           `json:"apiKey"`
	ChatHistory []domain.Message `json:"chatHistory"`
}

// Generate proxies a completion to Gemini.
// POST /api/gemini
func (h *Handler) Generate(c echo.Context) error {
	ctx := c.Request().Context()

	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}

	reply, err := h.service.Generate(ctx, req.Prompt, req.APIKey, req.ChatHistory)
	if err != nil {
		status := http.StatusBadGateway
		var cerr *domain.CompletionError
		if errors.As(err, &cerr) {
			status = cerr.Status
			if status == 0 {
				status = http.StatusBadRequest
			}
			return c.JSON(status, map[string]string{"error": cerr.Message})
		}
		return c.JSON(status, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"response": reply})
}
