package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/fraudgpt/internal/adapter/llm"
	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
	"github.com/xiaot623/gogo/fraudgpt/internal/hub"
	"github.com/xiaot623/gogo/fraudgpt/internal/service"
	server "github.com/xiaot623/gogo/fraudgpt/internal/transport/http"
	"github.com/xiaot623/gogo/fraudgpt/policy"
	"github.com/xiaot623/gogo/fraudgpt/tests/helpers"
)

func startAPI(t *testing.T) *Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logrus.New()
	log.SetOutput(io.Discard)

	admission, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)

	events := hub.NewHub(log)
	go events.Run(ctx)

	svc := service.New(helpers.NewTestSQLiteStore(t), llm.NewMockClient(), admission, helpers.NewTestConfig(),
		service.WithNotifier(events),
		service.WithLogger(log),
	)
	e := server.NewServer(svc, hub.NewServer(events, hub.DefaultServerOptions(), log), nil)
	e.Logger.SetOutput(io.Discard)

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/", 5*time.Second)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := startAPI(t)

	session, err := client.CreateSession(ctx)
	require.NoError(t, err)

	resp, err := client.Send(ctx, session.ID, "is this a lottery prize scam?", "")
	require.NoError(t, err)
	assert.Equal(t, session.ID, resp.SessionID)
	assert.NotEmpty(t, resp.Response)

	messages, err := client.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	sessions, err := client.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, client.DeleteSession(ctx, session.ID))
	sessions, err = client.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestClientAPIError(t *testing.T) {
	client := startAPI(t)

	_, err := client.Send(context.Background(), "missing", "hi", "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Session not found", apiErr.Detail)
}

func TestClientFollow(t *testing.T) {
	ctx := context.Background()
	client := startAPI(t)
	session, err := client.CreateSession(ctx)
	require.NoError(t, err)

	conn, err := client.Follow(ctx, session.ID)
	require.NoError(t, err)
	defer conn.Close()

	// Keep sending until the subscription is registered and an event arrives.
	received := make(chan domain.Event, 8)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev domain.Event
			if json.Unmarshal(data, &ev) == nil {
				received <- ev
			}
		}
	}()

	deadline := time.After(3 * time.Second)
	for {
		_, err := client.Send(ctx, session.ID, "hello", "")
		require.NoError(t, err)
		select {
		case ev := <-received:
			assert.Equal(t, domain.EventTypeMessage, ev.Type)
			assert.Equal(t, session.ID, ev.SessionID)
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no event received")
		}
	}
}

func TestREPLCommands(t *testing.T) {
	ctx := context.Background()
	client := startAPI(t)
	session, err := client.CreateSession(ctx)
	require.NoError(t, err)

	var out bytes.Buffer
	repl := &REPL{client: client, out: &out, sessionID: session.ID}

	path := filepath.Join(t.TempDir(), "shot.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	assert.True(t, repl.Handle(ctx, "/image "+path))
	assert.NotEmpty(t, repl.image)

	assert.True(t, repl.Handle(ctx, "what is this screenshot?"))
	assert.Empty(t, repl.image)
	assert.Contains(t, out.String(), "FraudGPT: ")

	out.Reset()
	assert.True(t, repl.Handle(ctx, "/history"))
	assert.Contains(t, out.String(), "You: [image] what is this screenshot?")

	out.Reset()
	assert.True(t, repl.Handle(ctx, "/sessions"))
	assert.Contains(t, out.String(), "* "+session.ID)

	out.Reset()
	assert.True(t, repl.Handle(ctx, "/delete"))
	assert.NotEqual(t, session.ID, repl.sessionID)

	out.Reset()
	assert.True(t, repl.Handle(ctx, "/bogus"))
	assert.Contains(t, out.String(), "Unknown command")

	assert.False(t, repl.Handle(ctx, "/quit"))
}

func TestREPLPrintsRepliesAfterEventStreamEnds(t *testing.T) {
	ctx := context.Background()
	client := startAPI(t)
	session, err := client.CreateSession(ctx)
	require.NoError(t, err)

	conn, err := client.Follow(ctx, session.ID)
	require.NoError(t, err)

	var out bytes.Buffer
	repl := &REPL{client: client, out: &out, sessionID: session.ID}
	repl.following.Store(true)
	done := make(chan struct{})
	go func() {
		repl.follow(conn)
		close(done)
	}()

	require.NoError(t, conn.Close())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("follower did not exit")
	}
	assert.False(t, repl.following.Load())

	assert.True(t, repl.Handle(ctx, "hello"))
	assert.Contains(t, out.String(), "FraudGPT: ")
}
