// Package helpers holds fixtures shared by package tests.
package helpers

import (
	"sync"
	"testing"
	"time"

	"github.com/xiaot623/gogo/fraudgpt/internal/config"
	"github.com/xiaot623/gogo/fraudgpt/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestConfig returns the production defaults without reading the environment.
func NewTestConfig() *config.Config {
	return &config.Config{
		HTTPPort:         8080,
		StoreDriver:      config.StoreSQLite,
		DatabaseURL:      ":memory:",
		EngineProvider:   "mock",
		EngineModel:      "gemini-2.0-flash",
		EngineTimeout:    5 * time.Second,
		ContextMessages:  20,
		SessionListLimit: 50,
		MessageListLimit: 100,
		MaxMessageChars:  8000,
		MaxImageBytes:    10 << 20,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Clock is a deterministic time source that advances by Step on every call.
type Clock struct {
	mu      sync.Mutex
	Current time.Time
	Step    time.Duration
}

// NewClock starts a clock at a fixed instant stepping one second per call.
func NewClock() *Clock {
	return &Clock{Current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), Step: time.Second}
}

// Now returns the current instant and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.Current
	c.Current = c.Current.Add(c.Step)
	return t
}
