package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Action is one decoded client request. The set of implementations is
// closed to this package; Manager.Dispatch switches over all of them.
type Action interface {
	Name() string
	isAction()
}

type RegisterAction struct{ User UserIdentity }

type StartChatAction struct{ Peer UserIdentity }

type SendMessageAction struct {
	ChatID  string
	Content string
}

// TypingAction is typing:start when Active, typing:stop otherwise.
type TypingAction struct {
	ChatID string
	Active bool
}

type ReadAction struct{ ChatID string }

type GetOnlineAction struct{}

type JoinChatAction struct{ ChatID string }

type LeaveChatAction struct{ ChatID string }

// DisconnectAction is raised by the transport when the read loop ends.
type DisconnectAction struct{}

func (RegisterAction) Name() string    { return EventUserRegister }
func (StartChatAction) Name() string   { return EventChatStart }
func (SendMessageAction) Name() string { return EventMessageSend }
func (a TypingAction) Name() string {
	if a.Active {
		return EventTypingStart
	}
	return EventTypingStop
}
func (ReadAction) Name() string       { return EventMessageRead }
func (GetOnlineAction) Name() string  { return EventUsersGetOnline }
func (JoinChatAction) Name() string   { return EventChatJoin }
func (LeaveChatAction) Name() string  { return EventChatLeave }
func (DisconnectAction) Name() string { return "disconnect" }

func (RegisterAction) isAction()    {}
func (StartChatAction) isAction()   {}
func (SendMessageAction) isAction() {}
func (TypingAction) isAction()      {}
func (ReadAction) isAction()        {}
func (GetOnlineAction) isAction()   {}
func (JoinChatAction) isAction()    {}
func (LeaveChatAction) isAction()   {}
func (DisconnectAction) isAction()  {}

type identityPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type chatPayload struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

// DecodeAction parses one inbound frame.
func DecodeAction(frame []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch env.Event {
	case EventUserRegister:
		id, err := decodeIdentity(env)
		if err != nil {
			return nil, err
		}
		return RegisterAction{User: id}, nil
	case EventChatStart:
		id, err := decodeIdentity(env)
		if err != nil {
			return nil, err
		}
		return StartChatAction{Peer: id}, nil
	case EventMessageSend:
		p, err := decodeChat(env)
		if err != nil {
			return nil, err
		}
		return SendMessageAction{ChatID: p.ChatID, Content: p.Content}, nil
	case EventTypingStart, EventTypingStop:
		p, err := decodeChat(env)
		if err != nil {
			return nil, err
		}
		return TypingAction{ChatID: p.ChatID, Active: env.Event == EventTypingStart}, nil
	case EventMessageRead:
		p, err := decodeChat(env)
		if err != nil {
			return nil, err
		}
		return ReadAction{ChatID: p.ChatID}, nil
	case EventChatJoin:
		p, err := decodeChat(env)
		if err != nil {
			return nil, err
		}
		return JoinChatAction{ChatID: p.ChatID}, nil
	case EventChatLeave:
		p, err := decodeChat(env)
		if err != nil {
			return nil, err
		}
		return LeaveChatAction{ChatID: p.ChatID}, nil
	case EventUsersGetOnline:
		return GetOnlineAction{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

func decodeIdentity(env Envelope) (UserIdentity, error) {
	var p identityPayload
	if len(env.Data) == 0 {
		return UserIdentity{}, fmt.Errorf("%w: %s requires a user", ErrInvalidPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return UserIdentity{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
	}
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return UserIdentity{}, fmt.Errorf("%w: %s: missing id", ErrInvalidPayload, env.Event)
	}
	return UserIdentity{ID: p.ID, Name: p.Name, Email: p.Email}, nil
}

func decodeChat(env Envelope) (chatPayload, error) {
	var p chatPayload
	if len(env.Data) == 0 {
		return p, fmt.Errorf("%w: %s requires a chatId", ErrInvalidPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return p, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
	}
	p.ChatID = normalizeRoom(p.ChatID)
	if p.ChatID == "" {
		return p, fmt.Errorf("%w: %s: missing chatId", ErrInvalidPayload, env.Event)
	}
	return p, nil
}
