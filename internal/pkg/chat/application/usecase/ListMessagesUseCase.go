package usecase

import (
	"context"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
)

// ListMessagesInput carries parameters to fetch messages of a conversation
type ListMessagesInput struct {
	ConversationID string
	ViewerID       string
}

// ListMessagesUseCase returns the full message log of a conversation to one of its participants.
type ListMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewListMessagesUseCase(repo repository.ChatRepository) *ListMessagesUseCase {
	return &ListMessagesUseCase{Repo: repo}
}

// Execute returns messages ordered by (created_at, id). The slice is never nil.
func (uc *ListMessagesUseCase) Execute(ctx context.Context, in ListMessagesInput) ([]chat.Message, error) {
	conversationID, err := chat.CanonicalID(in.ConversationID)
	if err != nil {
		return nil, err
	}
	in.ConversationID = conversationID
	viewerID, err := chat.CanonicalID(in.ViewerID)
	if err != nil {
		return nil, err
	}
	in.ViewerID = viewerID

	if _, err := uc.Repo.GetConversation(ctx, in.ConversationID); err != nil {
		return nil, storeError(err)
	}
	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.ViewerID)
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, chat.ErrNotParticipant
	}

	msgs, err := uc.Repo.ListMessages(ctx, in.ConversationID)
	if err != nil {
		return nil, storeError(err)
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}
