package main

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

	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

// Client talks to the chat API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API rooted at baseURL, e.g. http://localhost:8080.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateSession creates a new session.
func (c *Client) CreateSession(ctx context.Context) (*domain.Session, error) {
	var session domain.Session
	if err := c.do(ctx, http.MethodPost, "/api/chat/sessions", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions lists sessions, most recently active first.
func (c *Client) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	if err := c.do(ctx, http.MethodGet, "/api/chat/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListMessages lists the messages of a session, oldest first.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var messages []domain.Message
	path := "/api/chat/sessions/" + url.PathEscape(sessionID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Send runs one chat turn. image may be empty.
func (c *Client) Send(ctx context.Context, sessionID, text, image string) (*domain.ChatResponse, error) {
	req := domain.ChatRequest{SessionID: sessionID, Message: text}
	if image != "" {
		req.ImageBase64 = &image
	}
	var resp domain.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat/send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSession deletes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	var status domain.StatusMessage
	return c.do(ctx, http.MethodDelete, "/api/chat/sessions/"+url.PathEscape(sessionID), nil, &status)
}

// Follow opens the event stream of a session.
func (c *Client) Follow(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/chat/sessions/" + url.PathEscape(sessionID) + "/events"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e domain.ErrorResponse
		if json.Unmarshal(data, &e) != nil || e.Detail == "" {
			e.Detail = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Detail: e.Detail}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
