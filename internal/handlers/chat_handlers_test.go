package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sol-e-e/realtime-chat/internal/chat"
	"github.com/sol-e-e/realtime-chat/internal/store/memory"
)

// idleConn never yields a frame.
type idleConn struct{ closed chan struct{} }

func (c idleConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}
func (idleConn) WriteMessage(int, []byte) error { return nil }
func (idleConn) Close() error                   { return nil }

func newTestApp(t *testing.T) (*fiber.App, *chat.Manager) {
	app, m, _ := newTestAppWithStore(t)
	return app, m
}

func newTestAppWithStore(t *testing.T) (*fiber.App, *chat.Manager, *memory.Store) {
	t.Helper()
	s := memory.New()
	m := chat.NewManager(s, nil)
	h := New(context.Background(), m, s, nil)
	return NewApp(h, []string{"http://localhost:3000"}), m, s
}

func register(t *testing.T, m *chat.Manager, id, name string) {
	t.Helper()
	c := m.Connect(idleConn{closed: make(chan struct{})})
	m.Dispatch(context.Background(), c, chat.RegisterAction{User: chat.UserIdentity{ID: id, Name: name}})
	_, ok := m.Registry().LookupByUser(id)
	require.True(t, ok)
}

func getJSON(t *testing.T, app *fiber.App, target string, v any) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v), string(body))
	return resp
}

func TestStatusHandler(t *testing.T) {
	app, m := newTestApp(t)
	register(t, m, "alice", "Alice")

	var body map[string]any
	resp := getJSON(t, app, "/", &body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "running", body["status"])
	assert.EqualValues(t, 1, body["connectedUsers"])
}

func TestHealthHandler(t *testing.T) {
	app, _ := newTestApp(t)

	var body map[string]any
	resp := getJSON(t, app, "/health", &body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Contains(t, body, "uptime")
}

func TestOnlineUsersHandler(t *testing.T) {
	app, m := newTestApp(t)
	register(t, m, "bob", "Bob")
	register(t, m, "alice", "Alice")

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"all", "/api/users/online", []string{"alice", "bob"}},
		{"exclude", "/api/users/online?exclude=alice", []string{"bob"}},
		{"exclude unknown", "/api/users/online?exclude=zed", []string{"alice", "bob"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var users []chat.OnlineUser
			resp := getJSON(t, app, tt.target, &users)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			ids := make([]string, 0, len(users))
			for _, u := range users {
				ids = append(ids, u.UserID)
				assert.Empty(t, u.SocketID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestUpgradeHandler_RejectsPlainHTTP(t *testing.T) {
	app, _ := newTestApp(t)

	var body map[string]string
	resp := getJSON(t, app, "/api/ws", &body)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestErrorHandler_NotFound(t *testing.T) {
	app, _ := newTestApp(t)

	var body map[string]string
	resp := getJSON(t, app, "/api/nope", &body)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestCORS(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestPresenceHandler(t *testing.T) {
	app, m, _ := newTestAppWithStore(t)
	register(t, m, "alice", "Alice")

	var got chat.Presence
	resp := getJSON(t, app, "/api/users/alice/presence", &got)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", got.UserID)
	assert.True(t, got.Online)
	assert.False(t, got.LastSeen.IsZero())

	resp = getJSON(t, app, "/api/users/zed/presence", &got)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, chat.Presence{UserID: "zed"}, got)
}

func TestMessagesHandler(t *testing.T) {
	app, _, s := newTestAppWithStore(t)
	ctx := context.Background()
	_, err := s.GetOrCreateRoom(ctx, chat.UserIdentity{ID: "alice"}, chat.UserIdentity{ID: "bob"})
	require.NoError(t, err)
	for _, content := range []string{"one", "two", "three"} {
		_, err := s.SaveMessage(ctx, &chat.Message{ChatID: "alice-bob", Content: content, SenderID: "bob"})
		require.NoError(t, err)
	}

	t.Run("default limit", func(t *testing.T) {
		var msgs []chat.Message
		resp := getJSON(t, app, "/api/chats/alice-bob/messages", &msgs)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Len(t, msgs, 3)
	})
	t.Run("newest first cut", func(t *testing.T) {
		var msgs []chat.Message
		resp := getJSON(t, app, "/api/chats/alice-bob/messages?limit=2", &msgs)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Len(t, msgs, 2)
		assert.Equal(t, "two", msgs[0].Content)
		assert.Equal(t, "three", msgs[1].Content)
	})

	errorCases := []struct {
		name   string
		target string
		code   int
	}{
		{"unknown room", "/api/chats/alice-carol/messages", fiber.StatusNotFound},
		{"zero limit", "/api/chats/alice-bob/messages?limit=0", fiber.StatusBadRequest},
		{"limit too large", "/api/chats/alice-bob/messages?limit=500", fiber.StatusBadRequest},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			resp := getJSON(t, app, tt.target, &body)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}
