// Package http provides the HTTP server of the chat API.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/gogo/fraudgpt/internal/service"
	v1 "github.com/xiaot623/gogo/fraudgpt/internal/transport/http/v1"
)

// NewServer creates and configures the public HTTP server.
// events and metrics are optional; their routes are skipped when nil.
func NewServer(svc *service.Service, events v1.EventSubscriber, metrics http.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, events, metrics)

	// Register Routes
	v1Handler.RegisterRoutes(e)

	return e
}
