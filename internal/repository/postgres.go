package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	seq        BIGSERIAL,
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated ON chat_sessions (updated_at DESC);

CREATE TABLE IF NOT EXISTS chat_messages (
	seq        BIGSERIAL,
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	image_url  TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages (session_id, created_at, seq);
`

// PostgresStore implements Store on PostgreSQL through a pgx connection pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the schema if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &PostgresStore{db: pool}
	if err := store.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// CreateSchema creates tables and indexes. Safe to run repeatedly.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, postgresSchemaSQL)
	return err
}

// DropSchema drops every table owned by the store.
func (s *PostgresStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		DROP TABLE IF EXISTS chat_messages;
		DROP TABLE IF EXISTS chat_sessions;
	`)
	return err
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// CreateSession creates a new session.
func (s *PostgresStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.Title, session.CreatedAt.UTC(), session.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRow(ctx,
		`SELECT id, title, created_at, updated_at FROM chat_sessions WHERE id = $1`,
		sessionID,
	).Scan(&session.ID, &session.Title, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	return &session, nil
}

// ListSessions lists sessions, most recently active first.
func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title, created_at, updated_at FROM chat_sessions
		 ORDER BY updated_at DESC, seq DESC LIMIT $1`,
		pgLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(&session.ID, &session.Title, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session.CreatedAt = session.CreatedAt.UTC()
		session.UpdatedAt = session.UpdatedAt.UTC()
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// TouchSession sets the updated timestamp of a session.
func (s *PostgresStore) TouchSession(ctx context.Context, sessionID string, t time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`, t.UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// InsertMessage creates a new message.
func (s *PostgresStore) InsertMessage(ctx context.Context, message *domain.Message) error {
	var imageURL *string
	if message.ImageURL != "" {
		imageURL = &message.ImageURL
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, image_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		message.ID, message.SessionID, string(message.Role), message.Content, imageURL, message.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages retrieves messages for a session in chronological order.
func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	return s.queryMessages(ctx,
		`SELECT id, session_id, role, content, image_url, created_at FROM chat_messages
		 WHERE session_id = $1 ORDER BY created_at ASC, seq ASC LIMIT $2`,
		sessionID, pgLimit(limit))
}

// ListRecentMessages retrieves the newest n messages of a session in chronological order.
func (s *PostgresStore) ListRecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error) {
	if n <= 0 {
		return []domain.Message{}, nil
	}
	return s.queryMessages(ctx,
		`SELECT id, session_id, role, content, image_url, created_at FROM (
			SELECT id, session_id, role, content, image_url, created_at, seq FROM chat_messages
			WHERE session_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2
		 ) recent ORDER BY created_at ASC, seq ASC`,
		sessionID, n)
}

func (s *PostgresStore) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var role string
		var imageURL *string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &imageURL, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		if imageURL != nil {
			msg.ImageURL = *imageURL
		}
		msg.Timestamp = msg.Timestamp.UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// DeleteMessages removes every message of a session.
func (s *PostgresStore) DeleteMessages(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM chat_messages WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

// pgLimit maps "no limit" to NULL, which Postgres treats as LIMIT ALL.
func pgLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

// Ensure PostgresStore implements Store at compile time.
var _ Store = (*PostgresStore)(nil)
