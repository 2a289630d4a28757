package chat

// Chat is the domain aggregate for a conversation and its invariants.
//
// Notes:
//   - The application layer hydrates it with participants before invoking its behaviors.
//   - Persistence is handled by repositories outside the domain; the store
//     assigns message timestamps.
type Chat struct {
	Conversation Conversation
	Participants map[string]Participant // keyed by userID
}

// NewChat hydrates an aggregate from stored rows.
func NewChat(conv Conversation, participants []Participant) *Chat {
	members := make(map[string]Participant, len(participants))
	for _, p := range participants {
		members[p.UserID] = p
	}
	return &Chat{Conversation: conv, Participants: members}
}

// HasParticipant tells whether userID is part of this chat.
func (c *Chat) HasParticipant(userID string) bool {
	if c == nil || c.Participants == nil {
		return false
	}
	_, ok := c.Participants[userID]
	return ok
}

// IsComplete reports whether the chat has exactly the two participants of its pair.
// Anything else means a partially created conversation.
func (c *Chat) IsComplete() bool {
	if c == nil || len(c.Participants) != 2 {
		return false
	}
	return c.HasParticipant(c.Conversation.UserLow) && c.HasParticipant(c.Conversation.UserHigh)
}

// ParticipantIDs lists member user ids, low id first.
func (c *Chat) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, id := range []string{c.Conversation.UserLow, c.Conversation.UserHigh} {
		if c.HasParticipant(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// PostMessage applies domain rules and returns a validated message ready to persist.
//
// Validations:
// - Conversation/message identity must match
// - Sender must be a participant
// - Content must be non-blank and within MaxMessageLength
func (c *Chat) PostMessage(m Message) (Message, error) {
	if m.ConversationID == "" || c.Conversation.ID == "" || m.ConversationID != c.Conversation.ID {
		return Message{}, ErrConversationNotFound
	}

	if !c.HasParticipant(m.SenderID) {
		return Message{}, ErrNotParticipant
	}

	validated, err := NewMessage(m)
	if err != nil {
		return Message{}, err
	}
	return *validated, nil
}
