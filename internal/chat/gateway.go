package chat

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotRegistered  = errors.New("user not registered")
	ErrInvalidPeer    = errors.New("invalid chat peer")
	ErrRoomNotFound   = errors.New("chat room not found")
	ErrNotParticipant = errors.New("user is not a participant of this chat")
	ErrRoomConflict   = errors.New("chat room id belongs to another pair of users")

	ErrIdentityChanged = errors.New("connection is already registered as another user")
)

// Gateway is the persistence collaborator. Every call is awaited by the
// manager and its error is turned into the action's failure event.
type Gateway interface {
	GetRoom(ctx context.Context, chatID string) (*ChatRoom, error)
	// GetOrCreateRoom must converge on RoomID(a.ID, b.ID) when called
	// concurrently, and fail with ErrRoomConflict when the room under that id
	// is not shared by exactly a and b.
	GetOrCreateRoom(ctx context.Context, a, b UserIdentity) (*ChatRoom, error)
	// SaveMessage appends msg, updates the room's lastMessage and returns the new id.
	SaveMessage(ctx context.Context, msg *Message) (string, error)
	UpdateLastReadAt(ctx context.Context, chatID, userID string, at time.Time) error
	UpdateUserOnlineStatus(ctx context.Context, userID string, online bool) error
}

// Publisher receives a copy of every persisted message.
type Publisher interface {
	PublishMessage(ctx context.Context, msg *Message) error
}

type nopPublisher struct{}

func (nopPublisher) PublishMessage(context.Context, *Message) error { return nil }
