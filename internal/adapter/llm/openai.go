package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client. Empty baseURL and model fall back to the Gemini defaults.
func NewOpenAIClient(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = DefaultOpenAIBaseURL
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return ProviderOpenAI }

// Generate sends a chat completion request.
func (c *OpenAIClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *OpenAIClient) buildRequest(req *Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	// go-openai rejects a message that sets both Content and MultiContent.
	current := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.Image == nil {
		current.Content = req.Text
	} else {
		if req.Text != "" {
			current.MultiContent = append(current.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: req.Text,
			})
		}
		current.MultiContent = append(current.MultiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    req.Image.DataURL(),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	messages = append(messages, current)

	return openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		User:     req.SessionID,
	}
}

// Ensure OpenAIClient implements Client at compile time.
var _ Client = (*OpenAIClient)(nil)
