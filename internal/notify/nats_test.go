package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sol-e-e/realtime-chat/internal/chat"
)

func TestNATSPublisher_Subject(t *testing.T) {
	p := NewNATSPublisher(nil, "", nil)
	tests := []struct {
		chatID string
		want   string
	}{
		{"alice-bob", "chat.messages.alice-bob"},
		{"a.b-c", "chat.messages.a_b-c"},
		{"x*-y>", "chat.messages.x_-y_"},
		{"with space-z", "chat.messages.with_space-z"},
	}
	for _, tt := range tests {
		t.Run(tt.chatID, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Subject(tt.chatID))
		})
	}
	assert.Equal(t, "rooms.alice-bob", NewNATSPublisher(nil, "rooms", nil).Subject("alice-bob"))
}

func TestNATSPublisher_PublishMessage(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	p, err := Connect(url, "chat_test", nil)
	if err != nil {
		t.Skipf("nats not available at %s: %v", url, err)
	}
	defer p.Close()

	sub, err := p.nc.SubscribeSync("chat_test.>")
	require.NoError(t, err)
	require.NoError(t, p.nc.Flush())

	msg := &chat.Message{
		ID:        "m1",
		ChatID:    "alice-bob",
		Content:   "hi",
		SenderID:  "alice",
		Timestamp: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishMessage(context.Background(), msg))

	got, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "chat_test.alice-bob", got.Subject)
	assert.Equal(t, "m1", got.Header.Get(nats.MsgIdHdr))

	var decoded chat.Message
	require.NoError(t, json.Unmarshal(got.Data, &decoded))
	assert.Equal(t, "hi", decoded.Content)
	assert.Equal(t, "alice", decoded.SenderID)
}
