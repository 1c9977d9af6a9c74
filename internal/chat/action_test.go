package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Action
	}{
		{
			name:  "register",
			frame: `{"event":"user:register","data":{"id":"alice","name":"Alice","email":"a@x.io"}}`,
			want:  RegisterAction{User: UserIdentity{ID: "alice", Name: "Alice", Email: "a@x.io"}},
		},
		{
			name:  "start chat",
			frame: `{"event":"chat:start","data":{"id":"bob","name":"Bob","email":"b@x.io"}}`,
			want:  StartChatAction{Peer: UserIdentity{ID: "bob", Name: "Bob", Email: "b@x.io"}},
		},
		{
			name:  "send message",
			frame: `{"event":"message:send","data":{"chatId":" alice-bob ","content":"hi"}}`,
			want:  SendMessageAction{ChatID: "alice-bob", Content: "hi"},
		},
		{
			name:  "typing start",
			frame: `{"event":"typing:start","data":{"chatId":"alice-bob"}}`,
			want:  TypingAction{ChatID: "alice-bob", Active: true},
		},
		{
			name:  "typing stop",
			frame: `{"event":"typing:stop","data":{"chatId":"alice-bob"}}`,
			want:  TypingAction{ChatID: "alice-bob"},
		},
		{
			name:  "read",
			frame: `{"event":"message:read","data":{"chatId":"alice-bob"}}`,
			want:  ReadAction{ChatID: "alice-bob"},
		},
		{
			name:  "online list",
			frame: `{"event":"users:get-online"}`,
			want:  GetOnlineAction{},
		},
		{
			name:  "join",
			frame: `{"event":"chat:join","data":{"chatId":"alice-bob"}}`,
			want:  JoinChatAction{ChatID: "alice-bob"},
		},
		{
			name:  "leave",
			frame: `{"event":"chat:leave","data":{"chatId":"alice-bob"}}`,
			want:  LeaveChatAction{ChatID: "alice-bob"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeAction_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `hello`, ErrInvalidPayload},
		{"unknown event", `{"event":"room:nuke"}`, ErrUnknownEvent},
		{"disconnect is transport only", `{"event":"disconnect"}`, ErrUnknownEvent},
		{"register without data", `{"event":"user:register"}`, ErrInvalidPayload},
		{"register without id", `{"event":"user:register","data":{"name":"x"}}`, ErrInvalidPayload},
		{"register with null", `{"event":"user:register","data":null}`, ErrInvalidPayload},
		{"send without chat", `{"event":"message:send","data":{"content":"hi"}}`, ErrInvalidPayload},
		{"typing with blank chat", `{"event":"typing:start","data":{"chatId":"  "}}`, ErrInvalidPayload},
		{"wrong type", `{"event":"message:read","data":{"chatId":7}}`, ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestActionName(t *testing.T) {
	assert.Equal(t, EventTypingStart, TypingAction{Active: true}.Name())
	assert.Equal(t, EventTypingStop, TypingAction{}.Name())
	assert.Equal(t, "disconnect", DisconnectAction{}.Name())
}

func TestValidateMessage(t *testing.T) {
	assert.NoError(t, ValidateMessage("hi"))
	assert.ErrorIs(t, ValidateMessage(""), ErrMessageEmpty)
	assert.ErrorIs(t, ValidateMessage(" \n\t"), ErrMessageEmpty)
	assert.ErrorIs(t, ValidateMessage(strings.Repeat("a", MaxMessageLength+1)), ErrMessageTooLong)
	assert.ErrorIs(t, ValidateMessage("bad \xff byte"), ErrMessageInvalid)
}
