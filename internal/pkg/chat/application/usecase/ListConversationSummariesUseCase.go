package usecase

import (
	"context"
	"fmt"

	"birdconnect/internal/observability"
	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
	userport "birdconnect/internal/repository/port"
)

// ListConversationSummariesInput selects the viewer and an optional name filter.
type ListConversationSummariesInput struct {
	ViewerID string
	Query    string
}

// ListConversationSummariesOutput holds the projected chat list. Skipped counts
// conversations that could not be projected and were left out. A cancelled or
// expired context fails the whole call instead of being counted here.
type ListConversationSummariesOutput struct {
	Summaries []chat.ConversationSummary
	Skipped   int
}

// ListConversationSummariesUseCase builds the viewer's chat list from the store on every call.
type ListConversationSummariesUseCase struct {
	Repo  repository.ChatRepository
	Users userport.UserRepository
}

func NewListConversationSummariesUseCase(repo repository.ChatRepository, users userport.UserRepository) *ListConversationSummariesUseCase {
	return &ListConversationSummariesUseCase{Repo: repo, Users: users}
}

func (uc *ListConversationSummariesUseCase) Execute(ctx context.Context, in ListConversationSummariesInput) (*ListConversationSummariesOutput, error) {
	if err := chat.ValidateID(in.ViewerID); err != nil {
		return nil, err
	}

	convs, err := uc.Repo.ListConversationsByUser(ctx, in.ViewerID)
	if err != nil {
		return nil, storeError(err)
	}

	out := &ListConversationSummariesOutput{Summaries: make([]chat.ConversationSummary, 0, len(convs))}
	log := observability.LoggerFromContext(ctx)
	for _, conv := range convs {
		summary, err := uc.summarize(ctx, conv, in.ViewerID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, storeError(ctxErr)
			}
			out.Skipped++
			log.Warn("skip conversation summary", "conversation_id", conv.ID, "viewer_id", in.ViewerID, "error", err)
			continue
		}
		if !summary.MatchesQuery(in.Query) {
			continue
		}
		out.Summaries = append(out.Summaries, summary)
	}

	chat.SortSummaries(out.Summaries)
	return out, nil
}

func (uc *ListConversationSummariesUseCase) summarize(ctx context.Context, conv chat.Conversation, viewerID string) (chat.ConversationSummary, error) {
	otherID := conv.Other(viewerID)
	if otherID == "" {
		return chat.ConversationSummary{}, fmt.Errorf("viewer %s is not part of conversation %s", viewerID, conv.ID)
	}
	other, err := uc.Users.FindByID(ctx, otherID)
	if err != nil {
		return chat.ConversationSummary{}, fmt.Errorf("resolve other participant: %w", err)
	}
	latest, err := uc.Repo.GetLatestMessage(ctx, conv.ID)
	if err != nil {
		return chat.ConversationSummary{}, fmt.Errorf("latest message: %w", err)
	}
	return chat.Summarize(conv, other, latest), nil
}
