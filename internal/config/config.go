// Package config provides configuration for the chat service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Database
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:fraudgpt.db?cache=shared&mode=rwc"`

	// Cache (optional)
	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	// Reasoning engine
	EngineProvider string        `env:"ENGINE_PROVIDER" envDefault:"openai"`
	EngineAPIKey   string        `env:"ENGINE_API_KEY"`
	EngineBaseURL  string        `env:"ENGINE_BASE_URL"`
	EngineModel    string        `env:"ENGINE_MODEL" envDefault:"gemini-2.0-flash"`
	EngineTimeout  time.Duration `env:"ENGINE_TIMEOUT" envDefault:"120s"`

	// Turn pipeline
	ContextMessages  int    `env:"CONTEXT_MESSAGES" envDefault:"20"`
	SessionListLimit int    `env:"SESSION_LIST_LIMIT" envDefault:"50"`
	MessageListLimit int    `env:"MESSAGE_LIST_LIMIT" envDefault:"100"`
	MaxMessageChars  int    `env:"MAX_MESSAGE_CHARS" envDefault:"8000"`
	MaxImageBytes    int    `env:"MAX_IMAGE_BYTES" envDefault:"10485760"`
	PolicyFile       string `env:"POLICY_FILE"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads an optional .env file and then parses configuration from the environment.
// Variables already present in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// GEMINI_API_KEY is the name used by earlier deployments.
	if cfg.EngineAPIKey == "" {
		cfg.EngineAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that env parsing cannot.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	switch c.StoreDriver {
	case StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.EngineTimeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be positive, got %s", c.EngineTimeout)
	}
	if c.SessionListLimit <= 0 || c.MessageListLimit <= 0 {
		return fmt.Errorf("list limits must be positive")
	}
	if c.ContextMessages < 0 {
		return fmt.Errorf("CONTEXT_MESSAGES must not be negative")
	}
	return nil
}
