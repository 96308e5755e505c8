// Package http provides the HTTP server implementation for the gateway.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/DeweyHur/online-trpg/internal/service"
	v1 "github.com/DeweyHur/online-trpg/internal/transport/http/v1"
)

// NewServer creates and configures the gateway HTTP server. An empty
// corsOrigins allows any origin.
func NewServer(svc *service.Service, corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(corsOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: corsOrigins}))
	} else {
		e.Use(middleware.CORS())
	}

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)

	return e
}
