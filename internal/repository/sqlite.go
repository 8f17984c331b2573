package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

// SQLiteStore implements Store using SQLite.
// Timestamps are stored as unix microseconds so that ordering is numeric.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated ON chat_sessions(updated_at)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, timestamp)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Image support was added after the first schema.
	if err := s.ensureColumn("chat_messages", "image_url", "ALTER TABLE chat_messages ADD COLUMN image_url TEXT"); err != nil {
		return err
	}

	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.Title, toMicros(session.CreatedAt), toMicros(session.UpdatedAt))
	return err
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM chat_sessions WHERE id = ?`,
		sessionID).Scan(&session.ID, &session.Title, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.CreatedAt = fromMicros(createdAt)
	session.UpdatedAt = fromMicros(updatedAt)
	return &session, nil
}

// ListSessions lists sessions, most recently active first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	query := `SELECT id, title, created_at, updated_at FROM chat_sessions ORDER BY updated_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var session domain.Session
		var createdAt, updatedAt int64
		if err := rows.Scan(&session.ID, &session.Title, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		session.CreatedAt = fromMicros(createdAt)
		session.UpdatedAt = fromMicros(updatedAt)
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// TouchSession sets the updated timestamp of a session.
func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`,
		toMicros(t), sessionID)
	return err
}

// DeleteSession removes a session record.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID)
	return err
}

// InsertMessage creates a new message.
func (s *SQLiteStore) InsertMessage(ctx context.Context, message *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, image_url, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		message.ID, message.SessionID, string(message.Role), message.Content, nullString(message.ImageURL), toMicros(message.Timestamp))
	return err
}

// ListMessages retrieves messages for a session in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	query := `SELECT id, session_id, role, content, image_url, timestamp FROM chat_messages
		WHERE session_id = ? ORDER BY timestamp ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.queryMessages(ctx, query, sessionID)
}

// ListRecentMessages retrieves the newest n messages of a session in chronological order.
func (s *SQLiteStore) ListRecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error) {
	if n <= 0 {
		return []domain.Message{}, nil
	}
	query := fmt.Sprintf(`SELECT id, session_id, role, content, image_url, timestamp FROM (
			SELECT id, session_id, role, content, image_url, timestamp, rowid AS seq FROM chat_messages
			WHERE session_id = ? ORDER BY timestamp DESC, rowid DESC LIMIT %d
		) ORDER BY timestamp ASC, seq ASC`, n)
	return s.queryMessages(ctx, query, sessionID)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var role string
		var imageURL sql.NullString
		var ts int64
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &imageURL, &ts); err != nil {
			return nil, err
		}
		msg.Role = domain.Role(role)
		if imageURL.Valid {
			msg.ImageURL = imageURL.String
		}
		msg.Timestamp = fromMicros(ts)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteMessages removes every message of a session.
func (s *SQLiteStore) DeleteMessages(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// Ensure SQLiteStore implements Store at compile time.
var _ Store = (*SQLiteStore)(nil)
