package adapter

import (
	"context"
	"errors"
	"strings"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/repository/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgUserRepository reads the profiles table shared with the rest of the app.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

var _ repository.UserRepository = (*PgUserRepository)(nil)

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) FindByID(ctx context.Context, id string) (chat.User, error) {
	if r == nil || r.pool == nil {
		return chat.User{}, errors.New("PgUserRepository: nil pool")
	}
	var u chat.User
	var name *string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, username, avatar_url FROM public.profiles WHERE id = $1::uuid
	`, id).Scan(&u.ID, &name, &u.AvatarRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.User{}, chat.ErrUserNotFound
	}
	if err != nil {
		return chat.User{}, err
	}
	if name != nil {
		u.DisplayName = *name
	}
	return u, nil
}

func (r *PgUserRepository) Search(ctx context.Context, query string, excludeID string, limit int) ([]chat.User, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgUserRepository: nil pool")
	}
	if limit <= 0 {
		limit = repository.DefaultSearchLimit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, username, avatar_url
		FROM public.profiles
		WHERE username IS NOT NULL AND btrim(username) <> ''
		  AND ($2 = '' OR id::text <> $2)
		  AND position(lower($1) in lower(username)) > 0
		ORDER BY lower(username), id
		LIMIT $3
	`, strings.TrimSpace(query), excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]chat.User, 0)
	for rows.Next() {
		var u chat.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.AvatarRef); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}
