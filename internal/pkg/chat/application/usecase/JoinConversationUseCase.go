package usecase

import (
	"context"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
)

// JoinConversationInput validates a request to attach a user session to a conversation.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
}

// JoinConversationUseCase ensures the user belongs to the conversation before joining the realtime room.
type JoinConversationUseCase struct {
	Repo repository.ChatRepository
}

func NewJoinConversationUseCase(repo repository.ChatRepository) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) error {
	conversationID, err := chat.CanonicalID(in.ConversationID)
	if err != nil {
		return err
	}
	in.ConversationID = conversationID
	userID, err := chat.CanonicalID(in.UserID)
	if err != nil {
		return err
	}
	in.UserID = userID

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return storeError(err)
	}
	if !ok {
		return chat.ErrNotParticipant
	}
	return nil
}
