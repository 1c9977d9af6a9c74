package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sol-e-e/realtime-chat/internal/chat"
	"github.com/sol-e-e/realtime-chat/internal/store/memory"
)

type recordingPresence struct {
	calls map[string]bool
}

func (r *recordingPresence) UpdateUserOnlineStatus(_ context.Context, userID string, online bool) error {
	r.calls[userID] = online
	return nil
}

func (r *recordingPresence) Presence(_ context.Context, userID string) (chat.Presence, error) {
	return chat.Presence{UserID: userID, Online: r.calls[userID]}, nil
}

func TestGateway_SplitsCalls(t *testing.T) {
	ctx := context.Background()
	rooms := memory.New()
	presence := &recordingPresence{calls: map[string]bool{}}
	gw := NewGateway(rooms, presence)

	alice := chat.UserIdentity{ID: "alice", Name: "Alice"}
	bob := chat.UserIdentity{ID: "bob", Name: "Bob"}
	room, err := gw.GetOrCreateRoom(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, "alice-bob", room.ID)

	_, err = gw.GetRoom(ctx, "alice-bob")
	require.NoError(t, err)

	require.NoError(t, gw.UpdateUserOnlineStatus(ctx, "alice", true))
	assert.Equal(t, map[string]bool{"alice": true}, presence.calls)

	p, err := gw.Presence(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, p.Online)
	p, err = rooms.Presence(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, p.Online, "presence goes to the presence store only")

	_, err = gw.SaveMessage(ctx, &chat.Message{ChatID: "alice-bob", Content: "hi", SenderID: "alice"})
	require.NoError(t, err)
	msgs, err := gw.Messages(ctx, "alice-bob", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
