package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

// CreateSession creates an empty session titled "New Chat".
func (s *Service) CreateSession(ctx context.Context) (*domain.Session, error) {
	now := s.now().UTC()
	session := &domain.Session{
		ID:        s.newID(),
		Title:     domain.DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, domain.StoreFailure("create session", err)
	}
	s.metrics.SessionCreated()
	s.log.WithField("session_id", session.ID).Info("session created")
	return session, nil
}

// ListSessions returns sessions, most recently active first.
func (s *Service) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	sessions, err := s.store.ListSessions(ctx, clampLimit(limit, s.config.SessionListLimit))
	if err != nil {
		return nil, domain.StoreFailure("list sessions", err)
	}
	return sessions, nil
}

// ListMessages returns the messages of a session in chronological order.
// Unknown sessions yield an empty list.
func (s *Service) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	messages, err := s.store.ListMessages(ctx, sessionID, clampLimit(limit, s.config.MessageListLimit))
	if err != nil {
		return nil, domain.StoreFailure("list messages", err)
	}
	return messages, nil
}

// DeleteSession removes a session and all of its messages. Unknown ids succeed.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.DeleteSession(gctx, sessionID)
	})
	g.Go(func() error {
		return s.store.DeleteMessages(gctx, sessionID)
	})
	if err := g.Wait(); err != nil {
		return domain.StoreFailure("delete session", err)
	}

	s.metrics.SessionDeleted()
	s.notifier.Publish(domain.Event{
		Type:      domain.EventTypeSessionDeleted,
		SessionID: sessionID,
		Ts:        s.now().UnixMilli(),
	})
	s.log.WithField("session_id", sessionID).Info("session deleted")
	return nil
}

// GetSession returns a session or a NotFound error.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, domain.StoreFailure("get session", err)
	}
	if session == nil {
		return nil, domain.NotFound("get session", sessionID)
	}
	return session, nil
}
