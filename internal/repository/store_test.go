package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newSession(id string, at time.Time) *domain.Session {
	return &domain.Session{ID: id, Title: domain.DefaultSessionTitle, CreatedAt: at, UpdatedAt: at}
}

func newMessage(id, sessionID string, role domain.Role, at time.Time) *domain.Message {
	return &domain.Message{ID: id, SessionID: sessionID, Role: role, Content: "content " + id, Timestamp: at}
}

func messageIDs(messages []domain.Message) []string {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	return ids
}

// testStoreContract exercises the behavior every Store implementation must share.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SessionRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.CreateSession(ctx, newSession("s1", baseTime)))

		got, err := s.GetSession(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "s1", got.ID)
		assert.Equal(t, domain.DefaultSessionTitle, got.Title)
		assert.True(t, got.CreatedAt.Equal(baseTime))
		assert.True(t, got.UpdatedAt.Equal(baseTime))

		missing, err := s.GetSession(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("ListSessionsNewestUpdatedFirst", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for i := 0; i < 3; i++ {
			id := fmt.Sprintf("s%d", i)
			require.NoError(t, s.CreateSession(ctx, newSession(id, baseTime.Add(time.Duration(i)*time.Minute))))
		}
		require.NoError(t, s.TouchSession(ctx, "s0", baseTime.Add(time.Hour)))

		sessions, err := s.ListSessions(ctx, 50)
		require.NoError(t, err)
		require.Len(t, sessions, 3)
		assert.Equal(t, "s0", sessions[0].ID)
		assert.Equal(t, "s2", sessions[1].ID)
		assert.Equal(t, "s1", sessions[2].ID)
		assert.True(t, sessions[0].UpdatedAt.Equal(baseTime.Add(time.Hour)))

		limited, err := s.ListSessions(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		again, err := s.ListSessions(ctx, 50)
		require.NoError(t, err)
		assert.Equal(t, sessions, again)
	})

	t.Run("TouchMissingSessionIsNoop", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.TouchSession(context.Background(), "ghost", baseTime))
	})

	t.Run("MessagesChronological", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.CreateSession(ctx, newSession("s1", baseTime)))

		// Inserted out of order; the two with equal timestamps keep insertion order.
		require.NoError(t, s.InsertMessage(ctx, newMessage("m3", "s1", domain.RoleUser, baseTime.Add(3*time.Second))))
		require.NoError(t, s.InsertMessage(ctx, newMessage("m1", "s1", domain.RoleUser, baseTime.Add(time.Second))))
		require.NoError(t, s.InsertMessage(ctx, newMessage("m2", "s1", domain.RoleAssistant, baseTime.Add(time.Second))))
		require.NoError(t, s.InsertMessage(ctx, newMessage("other", "s2", domain.RoleUser, baseTime)))

		messages, err := s.ListMessages(ctx, "s1", 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m2", "m3"}, messageIDs(messages))
		assert.Equal(t, domain.RoleAssistant, messages[1].Role)

		first, err := s.ListMessages(ctx, "s1", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m2"}, messageIDs(first))

		recent, err := s.ListRecentMessages(ctx, "s1", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"m2", "m3"}, messageIDs(recent))

		none, err := s.ListRecentMessages(ctx, "s1", 0)
		require.NoError(t, err)
		assert.Empty(t, none)

		again, err := s.ListMessages(ctx, "s1", 100)
		require.NoError(t, err)
		assert.Equal(t, messages, again)
	})

	t.Run("MessageImageRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		msg := newMessage("m1", "s1", domain.RoleUser, baseTime)
		msg.ImageURL = "data:image/png;base64,AAAA"
		require.NoError(t, s.InsertMessage(ctx, msg))
		require.NoError(t, s.InsertMessage(ctx, newMessage("m2", "s1", domain.RoleAssistant, baseTime.Add(time.Millisecond))))

		messages, err := s.ListMessages(ctx, "s1", 10)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "data:image/png;base64,AAAA", messages[0].ImageURL)
		assert.Empty(t, messages[1].ImageURL)
		assert.True(t, messages[0].Timestamp.Equal(baseTime))
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.CreateSession(ctx, newSession("s1", baseTime)))
		require.NoError(t, s.InsertMessage(ctx, newMessage("m1", "s1", domain.RoleUser, baseTime)))

		require.NoError(t, s.DeleteSession(ctx, "s1"))
		require.NoError(t, s.DeleteMessages(ctx, "s1"))
		require.NoError(t, s.DeleteSession(ctx, "s1"))
		require.NoError(t, s.DeleteMessages(ctx, "unknown"))

		got, err := s.GetSession(ctx, "s1")
		require.NoError(t, err)
		assert.Nil(t, got)

		messages, err := s.ListMessages(ctx, "s1", 100)
		require.NoError(t, err)
		assert.Empty(t, messages)

		sessions, err := s.ListSessions(ctx, 50)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}
