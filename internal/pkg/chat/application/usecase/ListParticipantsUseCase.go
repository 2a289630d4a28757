package usecase

import (
	"context"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
)

// ListParticipantsInput wraps the conversation identifier to fetch its participants.
type ListParticipantsInput struct {
	ConversationID string
}

// ListParticipantsUseCase returns user IDs for all participants in the conversation.
type ListParticipantsUseCase struct {
	Repo repository.ChatRepository
}

func NewListParticipantsUseCase(repo repository.ChatRepository) *ListParticipantsUseCase {
	return &ListParticipantsUseCase{Repo: repo}
}

// Execute returns participant user IDs in the order the store lists them.
func (uc *ListParticipantsUseCase) Execute(ctx context.Context, in ListParticipantsInput) ([]string, error) {
	conversationID, err := chat.CanonicalID(in.ConversationID)
	if err != nil {
		return nil, err
	}

	participants, err := uc.Repo.ListParticipants(ctx, conversationID)
	if err != nil {
		return nil, storeError(err)
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}
