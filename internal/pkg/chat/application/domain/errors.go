package chat

import (
	"errors"
	"fmt"
)

// Error classes. Specific errors below wrap one of these so callers can
// branch with errors.Is on either the class or the precise cause.
var (
	ErrInvalidInput = errors.New("chat: invalid input")
	ErrUnauthorized = errors.New("chat: unauthorized")
	ErrNotFound     = errors.New("chat: not found")
)

var (
	ErrMalformedID      = fmt.Errorf("%w: malformed id", ErrInvalidInput)
	ErrEmptyMessage     = fmt.Errorf("%w: empty message content", ErrInvalidInput)
	ErrMessageTooLong   = fmt.Errorf("%w: message content too long", ErrInvalidInput)
	ErrSelfConversation = fmt.Errorf("%w: cannot open a conversation with yourself", ErrInvalidInput)

	ErrNotParticipant = fmt.Errorf("%w: user is not a participant in the conversation", ErrUnauthorized)

	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("%w: conversation", ErrNotFound)
)
