// Package v1 provides the HTTP handlers of the chat API.
package v1

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/fraudgpt/internal/service"
)

// EventSubscriber streams session events over an upgraded connection.
type EventSubscriber interface {
	Subscribe(c echo.Context, sessionID string) error
}

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	events  EventSubscriber
	metrics http.Handler
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, events EventSubscriber, metrics http.Handler) *Handler {
	return &Handler{
		service: service,
		events:  events,
		metrics: metrics,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("", h.Root)
	api.GET("/", h.Root)

	// Chat API
	api.POST("/chat/sessions", h.CreateSession)
	api.GET("/chat/sessions", h.ListSessions)
	api.GET("/chat/sessions/:session_id/messages", h.ListMessages)
	api.DELETE("/chat/sessions/:session_id", h.DeleteSession)
	api.POST("/chat/send", h.SendMessage)
	if h.events != nil {
		api.GET("/chat/sessions/:session_id/events", h.SessionEvents)
	}

	e.GET("/health", h.Health)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics))
	}
}

// Root is the liveness endpoint.
// GET /api/
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, statusMessage("FraudGPT API is running"))
}

// Health reports whether the store is reachable.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Health(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"store":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"store":  "ok",
	})
}

// queryLimit parses ?limit. Missing or malformed values yield 0, which the service
// replaces with its default.
func queryLimit(c echo.Context) int {
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			return val
		}
	}
	return 0
}
