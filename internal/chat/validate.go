package chat

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const MaxMessageLength = 5000

var (
	ErrMessageEmpty   = errors.New("message content cannot be empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	ErrMessageInvalid = errors.New("message contains invalid characters")
)

// ValidateMessage validates a message content.
func ValidateMessage(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrMessageEmpty
	}
	if len(content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(content) {
		return ErrMessageInvalid
	}
	return nil
}

// publicError reports whether err is safe to show to the client verbatim.
func publicError(err error) bool {
	for _, target := range []error{
		ErrNotRegistered, ErrInvalidPeer, ErrRoomNotFound, ErrNotParticipant, ErrRoomConflict, ErrIdentityChanged,
		ErrMessageEmpty, ErrMessageTooLong, ErrMessageInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func clientError(err error, fallback string) string {
	if publicError(err) {
		return err.Error()
	}
	return fallback
}
