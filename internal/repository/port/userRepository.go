package repository

import (
	"context"

	chat "birdconnect/internal/pkg/chat/application/domain"
)

// UserRepository is the read-only profile directory.
// A missing profile is reported as chat.ErrUserNotFound.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (chat.User, error)

	// Search returns profiles whose display name contains query
	// (case-insensitive), skipping excludeID and profiles without a name,
	// ordered by display name. limit <= 0 means the adapter default.
	Search(ctx context.Context, query string, excludeID string, limit int) ([]chat.User, error)
}

// DefaultSearchLimit caps Search when callers pass no limit.
const DefaultSearchLimit = 50
