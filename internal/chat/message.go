package chat

import "time"

// UserIdentity is the profile a client presents after the external login step.
type UserIdentity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session binds a live connection to a registered identity.
type Session struct {
	ConnID   string
	Identity UserIdentity
	JoinedAt time.Time
}

// OnlineUser is the wire view of a Session.
type OnlineUser struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	SocketID    string    `json:"socketId,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

func (s Session) Online() OnlineUser {
	return OnlineUser{
		UserID:      s.Identity.ID,
		DisplayName: s.Identity.Name,
		Email:       s.Identity.Email,
		SocketID:    s.ConnID,
		JoinedAt:    s.JoinedAt,
	}
}

// ParticipantData is the per-user profile copy stored on a room.
type ParticipantData struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	LastReadAt *time.Time `json:"lastReadAt,omitempty"`
}

type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SenderID  string    `json:"senderId"`
}

// ChatRoom is a persisted two-party room. Its id is RoomID of the two participants.
type ChatRoom struct {
	ID               string                     `json:"id"`
	Participants     []string                   `json:"participants"`
	ParticipantsData map[string]ParticipantData `json:"participantsData"`
	LastMessage      LastMessage                `json:"lastMessage"`
	CreatedAt        time.Time                  `json:"createdAt"`
}

func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// IsPair reports whether the room is shared by exactly a and b.
func (r *ChatRoom) IsPair(a, b string) bool {
	if len(r.Participants) != 2 || a == b {
		return false
	}
	return r.HasParticipant(a) && r.HasParticipant(b)
}

// Message is created once per successful send and never modified.
type Message struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chatId"`
	Content     string    `json:"content"`
	SenderID    string    `json:"senderId"`
	SenderName  string    `json:"senderName"`
	SenderEmail string    `json:"senderEmail"`
	Timestamp   time.Time `json:"timestamp"`
}

// Presence is the stored online state of a user.
type Presence struct {
	UserID   string    `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// Greeting written as lastMessage of a freshly created room.
const (
	RoomGreeting = "Start chatting!"
	SystemSender = "system"
)

// NewChatRoom builds the initial record for the room shared by a and b.
func NewChatRoom(a, b UserIdentity, now time.Time) *ChatRoom {
	return &ChatRoom{
		ID:           RoomID(a.ID, b.ID),
		Participants: []string{a.ID, b.ID},
		ParticipantsData: map[string]ParticipantData{
			a.ID: {Name: a.Name, Email: a.Email},
			b.ID: {Name: b.Name, Email: b.Email},
		},
		LastMessage: LastMessage{
			Content:   RoomGreeting,
			Timestamp: now,
			SenderID:  SystemSender,
		},
		CreatedAt: now,
	}
}
