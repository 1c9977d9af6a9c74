package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sol-e-e/realtime-chat/internal/chat"
)

type presence struct {
	online   bool
	lastSeen time.Time
}

// Store keeps rooms, messages and presence in process memory.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*chat.ChatRoom
	messages map[string][]chat.Message // chat id -> messages in save order
	users    map[string]presence
	now      func() time.Time
}

func New() *Store {
	return &Store{
		rooms:    map[string]*chat.ChatRoom{},
		messages: map[string][]chat.Message{},
		users:    map[string]presence{},
		now:      time.Now,
	}
}

func (s *Store) GetRoom(_ context.Context, chatID string) (*chat.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[chatID]
	if !ok {
		return nil, chat.ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

// GetOrCreateRoom is atomic: concurrent calls for the same pair create one room.
// A room already stored under the pair's id for other users is a conflict.
func (s *Store) GetOrCreateRoom(_ context.Context, a, b chat.UserIdentity) (*chat.ChatRoom, error) {
	id := chat.RoomID(a.ID, b.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		room = chat.NewChatRoom(a, b, s.now().UTC())
		s.rooms[id] = room
	}
	if !room.IsPair(a.ID, b.ID) {
		return nil, chat.ErrRoomConflict
	}
	return cloneRoom(room), nil
}

func (s *Store) SaveMessage(_ context.Context, msg *chat.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[msg.ChatID]
	if !ok {
		return "", chat.ErrRoomNotFound
	}
	if !room.HasParticipant(msg.SenderID) {
		return "", chat.ErrNotParticipant
	}

	saved := *msg
	saved.ID = uuid.NewString()
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], saved)
	room.LastMessage = chat.LastMessage{
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		SenderID:  msg.SenderID,
	}
	return saved.ID, nil
}

func (s *Store) UpdateLastReadAt(_ context.Context, chatID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[chatID]
	if !ok {
		return chat.ErrRoomNotFound
	}
	data, ok := room.ParticipantsData[userID]
	if !ok {
		return chat.ErrNotParticipant
	}
	data.LastReadAt = &at
	room.ParticipantsData[userID] = data
	return nil
}

func (s *Store) UpdateUserOnlineStatus(_ context.Context, userID string, online bool) error {
	s.mu.Lock()
	s.users[userID] = presence{online: online, lastSeen: s.now().UTC()}
	s.mu.Unlock()
	return nil
}

// Messages returns up to limit of the newest messages of a room, oldest
// first. A limit of zero or less returns all of them.
func (s *Store) Messages(_ context.Context, chatID string, limit int64) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.rooms[chatID]; !ok {
		return nil, chat.ErrRoomNotFound
	}
	msgs := s.messages[chatID]
	if limit > 0 && int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	return append([]chat.Message{}, msgs...), nil
}

// Presence reports the last online flag written for userID. Users never
// seen come back offline with a zero LastSeen.
func (s *Store) Presence(_ context.Context, userID string) (chat.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.users[userID]
	return chat.Presence{UserID: userID, Online: p.online, LastSeen: p.lastSeen}, nil
}

func cloneRoom(r *chat.ChatRoom) *chat.ChatRoom {
	cp := *r
	cp.Participants = append([]string(nil), r.Participants...)
	cp.ParticipantsData = make(map[string]chat.ParticipantData, len(r.ParticipantsData))
	for id, d := range r.ParticipantsData {
		if d.LastReadAt != nil {
			at := *d.LastReadAt
			d.LastReadAt = &at
		}
		cp.ParticipantsData[id] = d
	}
	return &cp
}
