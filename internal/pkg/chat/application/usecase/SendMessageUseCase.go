package usecase

import (
	"context"

	"birdconnect/internal/observability"
	chat "birdconnect/internal/pkg/chat/application/domain"
	"birdconnect/internal/pkg/chat/application/event"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to send a new message
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
	DedupeKey      *string
}

// SendMessageUseCase handles the SendMessage application service
// Hexagonal: depends on repository port, returns domain entity
type SendMessageUseCase struct {
	Repo      repository.ChatRepository
	Publisher event.Publisher
}

func NewSendMessageUseCase(repo repository.ChatRepository, publisher event.Publisher) *SendMessageUseCase {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &SendMessageUseCase{Repo: repo, Publisher: publisher}
}

// Execute validates and persists a message, then notifies subscribers.
// Validation and membership failures happen before any write. A retry that
// hits an existing dedupe key returns the stored message without notifying again.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	conversationID, err := chat.CanonicalID(in.ConversationID)
	if err != nil {
		return nil, err
	}
	senderID, err := chat.CanonicalID(in.SenderID)
	if err != nil {
		return nil, err
	}
	msg, err := chat.NewMessage(chat.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        in.Content,
		DedupeKey:      in.DedupeKey,
	})
	if err != nil {
		return nil, err
	}

	conv, err := uc.Repo.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return nil, storeError(err)
	}
	participants, err := uc.Repo.ListParticipants(ctx, conv.ID)
	if err != nil {
		return nil, storeError(err)
	}

	agg := chat.NewChat(conv, participants)
	if !agg.IsComplete() {
		observability.LoggerFromContext(ctx).Warn("conversation has unexpected participants",
			"conversation_id", conv.ID, "participants", len(participants))
	}
	draft, err := agg.PostMessage(*msg)
	if err != nil {
		return nil, err
	}

	saved, err := uc.Repo.SaveMessage(ctx, draft)
	if err != nil {
		return nil, storeError(err)
	}
	if saved.ID != draft.ID {
		return &saved, nil
	}

	if err := uc.Publisher.PublishMessageSent(ctx, event.MessageSent{Message: saved, Participants: agg.ParticipantIDs()}); err != nil {
		observability.LoggerFromContext(ctx).Error("publish message sent",
			"conversation_id", saved.ConversationID, "message_id", saved.ID, "error", err)
	}
	return &saved, nil
}
