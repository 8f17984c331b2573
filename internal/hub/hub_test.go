package hub

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewHub(quietLogger())
	go h.Run(ctx)

	srv := NewServer(h, DefaultServerOptions(), quietLogger())
	e := echo.New()
	e.GET("/sessions/:id/events", func(c echo.Context) error {
		return srv.Subscribe(c, c.Param("id"))
	})
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return h, ts
}

func dial(t *testing.T, ts *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + sessionID + "/events"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var ev domain.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubDeliversToSessionSubscribers(t *testing.T) {
	h, ts := startHub(t)

	a1 := dial(t, ts, "a")
	a2 := dial(t, ts, "a")
	b := dial(t, ts, "b")
	require.Eventually(t, func() bool {
		return h.SubscriberCount("a") == 2 && h.SubscriberCount("b") == 1
	}, time.Second, 10*time.Millisecond)

	msg := &domain.Message{ID: "m1", SessionID: "a", Role: domain.RoleUser, Content: "hello"}
	h.Publish(domain.Event{Type: domain.EventTypeMessage, SessionID: "a", Message: msg})
	h.Publish(domain.Event{Type: domain.EventTypeSessionDeleted, SessionID: "b"})

	for _, ws := range []*websocket.Conn{a1, a2} {
		ev := readEvent(t, ws)
		assert.Equal(t, domain.EventTypeMessage, ev.Type)
		require.NotNil(t, ev.Message)
		assert.Equal(t, "m1", ev.Message.ID)
	}

	ev := readEvent(t, b)
	assert.Equal(t, domain.EventTypeSessionDeleted, ev.Type)
	assert.Equal(t, "b", ev.SessionID)
	assert.Nil(t, ev.Message)
}

func TestHubUnregistersClosedConnections(t *testing.T) {
	h, ts := startHub(t)

	ws := dial(t, ts, "a")
	require.Eventually(t, func() bool { return h.SubscriberCount("a") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return h.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	h := NewHub(quietLogger())

	done := make(chan struct{})
	go func() {
		// Run is not started, so the queue fills and further events are dropped.
		for i := 0; i < 1000; i++ {
			h.Publish(domain.Event{Type: domain.EventTypeMessage, SessionID: "a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestRegisterAfterStopFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(quietLogger())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, h.Register(&Connection{ID: "c1", SessionID: "a", Send: make(chan []byte, 1)}))
	h.Unregister(&Connection{ID: "c1"})
	h.Publish(domain.Event{Type: domain.EventTypeMessage, SessionID: "a"})
}
