package chat

import "time"

// Conversation represents a 1:1 thread between UserLow and UserHigh.
// UserLow < UserHigh always holds; the pair is unique across all conversations.
type Conversation struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UserLow   string    `db:"user_low"`
	UserHigh  string    `db:"user_high"`
}

// NewDirectConversation prepares an unsaved conversation between a and b.
func NewDirectConversation(a, b string, now time.Time) (Conversation, error) {
	if err := ValidateID(a); err != nil {
		return Conversation{}, err
	}
	if err := ValidateID(b); err != nil {
		return Conversation{}, err
	}
	low, high := NormalizePair(a, b)
	if low == high {
		return Conversation{}, ErrSelfConversation
	}
	return Conversation{
		ID:        NewID(),
		CreatedAt: now.UTC(),
		UserLow:   low,
		UserHigh:  high,
	}, nil
}

// Other returns the participant opposite to userID, or "" if userID is not part of the pair.
func (c Conversation) Other(userID string) string {
	switch userID {
	case c.UserLow:
		return c.UserHigh
	case c.UserHigh:
		return c.UserLow
	}
	return ""
}

// Participants lists both user ids of the conversation.
func (c Conversation) Participants() []Participant {
	return []Participant{
		{ConversationID: c.ID, UserID: c.UserLow, JoinedAt: c.CreatedAt},
		{ConversationID: c.ID, UserID: c.UserHigh, JoinedAt: c.CreatedAt},
	}
}
