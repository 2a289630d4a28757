package repository

import (
	"context"

	chat "birdconnect/internal/pkg/chat/application/domain"
)

// ChatRepository defines persistence operations for the chat domain.
//
// Adapters report missing rows with chat.ErrConversationNotFound and a
// message from a non-member with chat.ErrNotParticipant. Any other error is
// an infrastructure failure.
type ChatRepository interface {
	// CreateDirectConversation inserts the conversation and both participant rows
	// atomically. If the pair already has a conversation (including one created
	// concurrently) that conversation is returned with created=false.
	CreateDirectConversation(ctx context.Context, c chat.Conversation) (conv chat.Conversation, created bool, err error)

	// FindDirectConversation looks the pair up through the pair index.
	FindDirectConversation(ctx context.Context, userLow string, userHigh string) (chat.Conversation, error)

	GetConversation(ctx context.Context, conversationID string) (chat.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]chat.Conversation, error)
	ListParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error)
	IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error)

	// SaveMessage persists m and returns the stored row. The store assigns
	// CreatedAt so that it never precedes the conversation's latest message.
	// A message whose (conversation, sender, dedupe key) already exists is not
	// inserted again; the stored original is returned instead.
	SaveMessage(ctx context.Context, m chat.Message) (chat.Message, error)

	// ListMessages returns every message of the conversation ordered by (created_at, id).
	ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error)

	// GetLatestMessage returns the last message in conversation order, or nil if there is none.
	GetLatestMessage(ctx context.Context, conversationID string) (*chat.Message, error)
}
