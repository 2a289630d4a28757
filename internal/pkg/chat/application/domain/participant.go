package chat

import "time"

// Participant captures membership of a user in a conversation.
// Primary key: (ConversationID, UserID)
type Participant struct {
	ConversationID string    `db:"conversation_id"`
	UserID         string    `db:"user_id"`
	JoinedAt       time.Time `db:"joined_at"`
}
