package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient is a mock implementation of Client for local runs and tests.
type MockClient struct {
	mu       sync.Mutex
	requests []Request

	// Err, when set, is returned by every Generate call.
	Err error
	// Reply, when set, replaces the generated answer.
	Reply string
}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Name returns the provider name.
func (m *MockClient) Name() string { return ProviderMock }

// Generate records the request and returns a canned verdict.
func (m *MockClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, *req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	content := m.Reply
	if content == "" {
		content = generateMockResponse(req)
	}
	prompt := estimateTokens(req)
	completion := len(content) / 4
	return &Response{
		Content: content,
		Model:   "mock-fraudgpt",
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// Requests returns a copy of every request received so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

var suspiciousTerms = []string{
	"urgent", "gift card", "wire", "bitcoin", "crypto", "password", "verify your account",
	"lottery", "prize", "otp", "bank details", "refund",
}

// generateMockResponse builds a short verdict from keyword hits.
func generateMockResponse(req *Request) string {
	lower := strings.ToLower(req.Text)
	var hits []string
	for _, term := range suspiciousTerms {
		if strings.Contains(lower, term) {
			hits = append(hits, term)
		}
	}

	var b strings.Builder
	b.WriteString("[MOCK] ")
	switch {
	case len(hits) >= 2:
		b.WriteString("Verdict: HIGH RISK. ")
	case len(hits) == 1:
		b.WriteString("Verdict: SUSPICIOUS. ")
	default:
		b.WriteString("Verdict: LOW RISK. ")
	}
	if len(hits) > 0 {
		fmt.Fprintf(&b, "Red flags: %s. ", strings.Join(hits, ", "))
	}
	if req.Image != nil {
		b.WriteString("An image was attached and reviewed. ")
	}
	b.WriteString("Never share passwords or one-time codes, and verify requests through an official channel.")
	return b.String()
}

// estimateTokens provides a rough token count estimate.
func estimateTokens(req *Request) int {
	total := len(req.SystemPrompt) + len(req.Text)
	for _, msg := range req.History {
		total += len(msg.Content)
	}
	return total / 4
}

// Ensure MockClient implements Client at compile time.
var _ Client = (*MockClient)(nil)
