package adapter

import (
	"context"
	"sort"
	"strings"
	"sync"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/repository/port"
)

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]chat.User
}

var _ repository.UserRepository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository(users ...chat.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[string]chat.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

// Put adds or replaces a profile.
func (r *MemoryUserRepository) Put(u chat.User) {
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string) (chat.User, error) {
	if err := ctx.Err(); err != nil {
		return chat.User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return chat.User{}, chat.ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) Search(ctx context.Context, query string, excludeID string, limit int) ([]chat.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = repository.DefaultSearchLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))

	r.mu.RLock()
	users := make([]chat.User, 0)
	for _, u := range r.users {
		if u.ID == excludeID || strings.TrimSpace(u.DisplayName) == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(u.DisplayName), q) {
			continue
		}
		users = append(users, u)
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		a, b := strings.ToLower(users[i].DisplayName), strings.ToLower(users[j].DisplayName)
		if a != b {
			return a < b
		}
		return users[i].ID < users[j].ID
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}
