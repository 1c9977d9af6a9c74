// Package store composes the room/message store and the presence store
// into the single gateway the chat manager talks to.
package store

import (
	"context"
	"time"

	"github.com/sol-e-e/realtime-chat/internal/chat"
)

// RoomStore is the part of chat.Gateway that owns rooms and messages.
type RoomStore interface {
	GetRoom(ctx context.Context, chatID string) (*chat.ChatRoom, error)
	GetOrCreateRoom(ctx context.Context, a, b chat.UserIdentity) (*chat.ChatRoom, error)
	SaveMessage(ctx context.Context, msg *chat.Message) (string, error)
	UpdateLastReadAt(ctx context.Context, chatID, userID string, at time.Time) error
	Messages(ctx context.Context, chatID string, limit int64) ([]chat.Message, error)
}

type PresenceStore interface {
	UpdateUserOnlineStatus(ctx context.Context, userID string, online bool) error
	Presence(ctx context.Context, userID string) (chat.Presence, error)
}

// Gateway sends room and message calls to one store and presence updates to another.
type Gateway struct {
	RoomStore
	PresenceStore
}

var _ chat.Gateway = Gateway{}

func NewGateway(rooms RoomStore, presence PresenceStore) Gateway {
	return Gateway{RoomStore: rooms, PresenceStore: presence}
}
