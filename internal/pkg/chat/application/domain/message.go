package chat

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength bounds message content in runes.
const MaxMessageLength = 4000

// Message is an immutable log entry in a conversation
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
	DedupeKey      *string   `db:"dedupe_key"`
}

// NewMessage validates and normalizes an outgoing message. Content is trimmed;
// blank content is rejected. The id is assigned here, the timestamp by the store.
func NewMessage(m Message) (*Message, error) {
	if err := ValidateID(m.ConversationID); err != nil {
		return nil, err
	}
	if err := ValidateID(m.SenderID); err != nil {
		return nil, err
	}

	m.Content = strings.TrimSpace(m.Content)
	if m.Content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(m.Content) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	if m.DedupeKey != nil {
		key := strings.TrimSpace(*m.DedupeKey)
		if key == "" {
			m.DedupeKey = nil
		} else {
			m.DedupeKey = &key
		}
	}

	if m.ID == "" {
		m.ID = NewID()
	}
	return &m, nil
}

// Before reports whether m sorts before o in conversation order: (created_at, id).
func (m Message) Before(o Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID < o.ID
}

// NextTimestamp returns the write timestamp for a message appended after last.
// Timestamps never go backwards within a conversation even if the clock does.
func NextTimestamp(now time.Time, last *time.Time) time.Time {
	now = now.UTC()
	if last != nil && now.Before(*last) {
		return last.UTC()
	}
	return now
}
