// Package llm provides clients for the reasoning engine that answers chat turns.
package llm

import (
	"context"
	"errors"
)

// Message roles understood by every provider.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when the engine answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Client defines the interface for reasoning engine calls.
type Client interface {
	// Generate sends one turn to the engine and waits for the full answer.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Name identifies the provider for logs and metrics.
	Name() string
}

// Message is one prior conversation entry sent as context.
type Message struct {
	Role    string
	Content string
}

// Image is an inline image attached to the current turn.
type Image struct {
	MIMEType string
	Base64   string
}

// DataURL renders the image as a data URL.
func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64
}

// Request is a single engine invocation.
type Request struct {
	SessionID    string
	SystemPrompt string
	History      []Message
	Text         string
	Image        *Image
}

// Usage represents token usage statistics.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the engine's answer.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}
