package llm

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Options selects and configures a provider.
type Options struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// NewClient creates a Client for opts.Provider.
// GOGO_MODE=MOCK forces the mock client regardless of the provider.
func NewClient(opts Options, log logrus.FieldLogger) (Client, error) {
	if os.Getenv(EnvGogoMode) == ModeMock {
		log.Info("GOGO_MODE=MOCK detected, using mock LLM client")
		return NewMockClient(), nil
	}

	switch strings.ToLower(opts.Provider) {
	case "", ProviderOpenAI:
		if opts.APIKey == "" {
			log.Warn("ENGINE_API_KEY is empty, engine calls will be rejected upstream")
		}
		return NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Model, opts.HTTPClient), nil
	case ProviderGemini:
		if opts.APIKey == "" {
			log.Warn("ENGINE_API_KEY is empty, engine calls will be rejected upstream")
		}
		return NewGeminiClient(opts.APIKey, opts.BaseURL, opts.Model, opts.HTTPClient), nil
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown engine provider %q", opts.Provider)
	}
}
