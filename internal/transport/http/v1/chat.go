package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

// CreateSession creates an empty chat session.
// POST /api/chat/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	session, err := h.service.CreateSession(c.Request().Context())
	if err != nil {
		return writeError(c, err, "")
	}
	return c.JSON(http.StatusOK, session)
}

// ListSessions lists sessions, most recently active first.
// GET /api/chat/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context(), queryLimit(c))
	if err != nil {
		return writeError(c, err, "")
	}
	return c.JSON(http.StatusOK, sessions)
}

// ListMessages lists the messages of a session, oldest first.
// GET /api/chat/sessions/:session_id/messages
func (h *Handler) ListMessages(c echo.Context) error {
	messages, err := h.service.ListMessages(c.Request().Context(), c.Param("session_id"), queryLimit(c))
	if err != nil {
		return writeError(c, err, "")
	}
	return c.JSON(http.StatusOK, messages)
}

// DeleteSession deletes a session and its messages.
// DELETE /api/chat/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.service.DeleteSession(c.Request().Context(), c.Param("session_id")); err != nil {
		return writeError(c, err, "")
	}
	return c.JSON(http.StatusOK, statusMessage("Session deleted successfully"))
}

// SendMessage runs one chat turn.
// POST /api/chat/send
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.SessionID == "" {
		return errorJSON(c, http.StatusBadRequest, "session_id is required")
	}

	result, err := h.service.SendTurn(c.Request().Context(), domain.TurnRequest{
		SessionID:   req.SessionID,
		Message:     req.Message,
		ImageBase64: req.Image(),
	})
	if err != nil {
		return writeError(c, err, "Chat processing failed: ")
	}

	return c.JSON(http.StatusOK, domain.ChatResponse{
		Response:  result.Response,
		SessionID: result.SessionID,
		MessageID: result.MessageID,
	})
}

// SessionEvents upgrades to a websocket that streams the session's events.
// GET /api/chat/sessions/:session_id/events
func (h *Handler) SessionEvents(c echo.Context) error {
	sessionID := c.Param("session_id")
	if _, err := h.service.GetSession(c.Request().Context(), sessionID); err != nil {
		return writeError(c, err, "")
	}
	return h.events.Subscribe(c, sessionID)
}
