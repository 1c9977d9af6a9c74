package chat

import (
	"encoding/json"
	"time"
)

// Wire event names. Inbound and outbound share the "typing:*" and
// "message:read" names.
const (
	EventUserRegister   = "user:register"
	EventUserRegistered = "user:registered"
	EventUserJoined     = "user:joined"
	EventUserLeft       = "user:left"

	EventUsersGetOnline  = "users:get-online"
	EventUsersOnlineList = "users:online-list"

	EventChatStart       = "chat:start"
	EventChatStarted     = "chat:started"
	EventChatJoin        = "chat:join"
	EventChatJoined      = "chat:joined"
	EventChatLeave       = "chat:leave"
	EventUserEnteredChat = "user:entered-chat"
	EventUserLeftChat    = "user:left-chat"

	EventMessageSend       = "message:send"
	EventMessageReceived   = "message:received"
	EventMessageSendFailed = "message:send-failed"
	EventMessageRead       = "message:read"

	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"

	EventError = "error"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encodeEvent(event string, payload any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: payload})
}

// FailurePayload is the failure variant shared by every action that reports errors.
type FailurePayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func failure(msg string) FailurePayload {
	return FailurePayload{Success: false, Error: msg}
}

type RegisteredPayload struct {
	Success             bool        `json:"success"`
	User                *OnlineUser `json:"user"`
	ConnectedUsersCount int         `json:"connectedUsersCount"`
}

// UserRef identifies a user in presence broadcasts.
type UserRef struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

func refOf(id UserIdentity) UserRef {
	return UserRef{UserID: id.ID, DisplayName: id.Name, Email: id.Email}
}

// PresencePayload is sent with user:joined and user:left.
type PresencePayload struct {
	User                UserRef `json:"user"`
	ConnectedUsersCount int     `json:"connectedUsersCount"`
}

type ChatStartedPayload struct {
	Success  bool      `json:"success"`
	ChatRoom *ChatRoom `json:"chatRoom"`
}

type MessageReceivedPayload struct {
	Success bool     `json:"success"`
	Message *Message `json:"message"`
}

type TypingPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	ChatID   string `json:"chatId"`
}

type ReadReceiptPayload struct {
	UserID string    `json:"userId"`
	ChatID string    `json:"chatId"`
	ReadAt time.Time `json:"readAt"`
}

type ChatJoinedPayload struct {
	ChatID string `json:"chatId"`
}

// ChatMemberPayload is sent with user:entered-chat and user:left-chat.
type ChatMemberPayload struct {
	UserID string `json:"userId"`
	ChatID string `json:"chatId"`
}
