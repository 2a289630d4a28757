package usecase

import (
	"context"

	chat "birdconnect/internal/pkg/chat/application/domain"
	userport "birdconnect/internal/repository/port"
)

// SearchUsersInput drives the "start a new chat" picker.
type SearchUsersInput struct {
	ViewerID string
	Query    string
	Limit    int
}

// SearchUsersUseCase lists other users by display name.
type SearchUsersUseCase struct {
	Users userport.UserRepository
}

func NewSearchUsersUseCase(users userport.UserRepository) *SearchUsersUseCase {
	return &SearchUsersUseCase{Users: users}
}

func (uc *SearchUsersUseCase) Execute(ctx context.Context, in SearchUsersInput) ([]chat.User, error) {
	if err := chat.ValidateID(in.ViewerID); err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit <= 0 || limit > userport.DefaultSearchLimit {
		limit = userport.DefaultSearchLimit
	}

	users, err := uc.Users.Search(ctx, in.Query, in.ViewerID, limit)
	if err != nil {
		return nil, storeError(err)
	}
	if users == nil {
		users = []chat.User{}
	}
	return users, nil
}
