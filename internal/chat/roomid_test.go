package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomID(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"alice", "bob", "alice-bob"},
		{"bob", "alice", "alice-bob"},
		{"u2", "u10", "u10-u2"},
		{"Zed", "amy", "Zed-amy"},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomID(tt.a, tt.b))
			assert.Equal(t, RoomID(tt.a, tt.b), RoomID(tt.b, tt.a))
		})
	}
}

func TestNewChatRoom(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	room := NewChatRoom(bob, alice, now)

	assert.Equal(t, "alice-bob", room.ID)
	assert.Len(t, room.Participants, 2)
	assert.True(t, room.HasParticipant("alice"))
	assert.True(t, room.HasParticipant("bob"))
	assert.False(t, room.HasParticipant("carol"))
	assert.Equal(t, "Alice", room.ParticipantsData["alice"].Name)
	assert.Equal(t, SystemSender, room.LastMessage.SenderID)
	assert.Equal(t, now, room.CreatedAt)
}
