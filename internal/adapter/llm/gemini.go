package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultGeminiBaseURL is the native Gemini REST API root.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the native Gemini generateContent endpoint.
type GeminiClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewGeminiClient creates a client. Empty baseURL and model fall back to the defaults.
func NewGeminiClient(apiKey, baseURL, model string, httpClient *http.Client) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  httpClient,
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// Name returns the provider name.
func (g *GeminiClient) Name() string { return ProviderGemini }

// Generate calls generateContent once.
func (g *GeminiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(g.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return g.parseResponse(respBody)
}

func (g *GeminiClient) buildRequest(req *Request) geminiRequest {
	out := geminiRequest{Contents: make([]geminiContent, 0, len(req.History)+1)}
	if req.SystemPrompt != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	for _, m := range req.History {
		out.Contents = append(out.Contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	current := geminiContent{Role: "user"}
	if req.Text != "" {
		current.Parts = append(current.Parts, geminiPart{Text: req.Text})
	}
	if req.Image != nil {
		current.Parts = append(current.Parts, geminiPart{InlineData: &geminiInlineData{
			MIMEType: req.Image.MIMEType,
			Data:     req.Image.Base64,
		}})
	}
	out.Contents = append(out.Contents, current)
	return out
}

func (g *GeminiClient) parseResponse(body []byte) (*Response, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, ErrEmptyResponse
	}

	model := parsed.ModelVersion
	if model == "" {
		model = g.model
	}
	return &Response{
		Content: text.String(),
		Model:   model,
		Usage: Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// Gemini names the assistant role "model".
func geminiRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}

// Ensure GeminiClient implements Client at compile time.
var _ Client = (*GeminiClient)(nil)
