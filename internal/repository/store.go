// Package repository defines the storage contract of the chat service and its
// implementations.
package repository

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

// Store defines the interface for session and message persistence.
// Referential integrity between messages and sessions is not enforced here.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	// GetSession returns nil, nil when the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	// ListSessions returns sessions ordered by updated_at, newest first.
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)
	// TouchSession sets updated_at. Missing sessions are ignored.
	TouchSession(ctx context.Context, sessionID string, t time.Time) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Message operations
	InsertMessage(ctx context.Context, message *domain.Message) error
	// ListMessages returns the oldest limit messages in chronological order.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	// ListRecentMessages returns the newest n messages in chronological order.
	ListRecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error)
	DeleteMessages(ctx context.Context, sessionID string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
