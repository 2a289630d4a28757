package usecase

import (
	"context"
	"errors"
	"time"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
	userport "birdconnect/internal/repository/port"
)

// ResolveConversationInput names the two sides of a direct conversation.
type ResolveConversationInput struct {
	ViewerID     string
	TargetUserID string
}

// ResolveConversationOutput is the single conversation for the pair.
// Created is true only for the call that inserted it.
type ResolveConversationOutput struct {
	Conversation chat.Conversation
	Created      bool
}

// ResolveConversationUseCase returns the existing conversation between two
// users or creates it. The pair index in the store decides races.
type ResolveConversationUseCase struct {
	Repo  repository.ChatRepository
	Users userport.UserRepository
	Now   func() time.Time
}

func NewResolveConversationUseCase(repo repository.ChatRepository, users userport.UserRepository) *ResolveConversationUseCase {
	return &ResolveConversationUseCase{Repo: repo, Users: users, Now: time.Now}
}

func (uc *ResolveConversationUseCase) Execute(ctx context.Context, in ResolveConversationInput) (*ResolveConversationOutput, error) {
	viewerID, err := chat.CanonicalID(in.ViewerID)
	if err != nil {
		return nil, err
	}
	targetID, err := chat.CanonicalID(in.TargetUserID)
	if err != nil {
		return nil, err
	}
	candidate, err := chat.NewDirectConversation(viewerID, targetID, uc.Now())
	if err != nil {
		return nil, err
	}

	if _, err := uc.Users.FindByID(ctx, targetID); err != nil {
		return nil, storeError(err)
	}

	existing, err := uc.Repo.FindDirectConversation(ctx, candidate.UserLow, candidate.UserHigh)
	switch {
	case err == nil:
		return &ResolveConversationOutput{Conversation: existing}, nil
	case !errors.Is(err, chat.ErrConversationNotFound):
		return nil, storeError(err)
	}

	conv, created, err := uc.Repo.CreateDirectConversation(ctx, candidate)
	if err != nil {
		return nil, storeError(err)
	}
	return &ResolveConversationOutput{Conversation: conv, Created: created}, nil
}
