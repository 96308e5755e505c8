// Package v1 provides HTTP handlers for the gateway API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/DeweyHur/online-trpg/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the gateway routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Session documents
	e.POST("/api/sessions", h.CreateSession)
	e.GET("/api/sessions/:session_id", h.GetSession)
	e.PUT("/api/sessions/:session_id", h.UpdateSession)

	// GM completion proxy
	e.POST("/api/gemini", h.Generate)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
