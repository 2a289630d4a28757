package adapter

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/repository/port"
)

// SqliteUserRepository reads profiles from the embedded database.
type SqliteUserRepository struct {
	db *sql.DB
}

var _ repository.UserRepository = (*SqliteUserRepository)(nil)

func NewSqliteUserRepository(db *sql.DB) *SqliteUserRepository {
	return &SqliteUserRepository{db: db}
}

// Upsert stores a profile. Profiles are owned elsewhere; this exists for seeding local databases.
func (r *SqliteUserRepository) Upsert(ctx context.Context, u chat.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, avatar_url) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET username = excluded.username, avatar_url = excluded.avatar_url
	`, u.ID, u.DisplayName, u.AvatarRef)
	return err
}

func (r *SqliteUserRepository) FindByID(ctx context.Context, id string) (chat.User, error) {
	if r == nil || r.db == nil {
		return chat.User{}, errors.New("SqliteUserRepository: nil db")
	}
	var (
		u      chat.User
		name   sql.NullString
		avatar sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, username, avatar_url FROM profiles WHERE id = ?`, id).
		Scan(&u.ID, &name, &avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.User{}, chat.ErrUserNotFound
	}
	if err != nil {
		return chat.User{}, err
	}
	u.DisplayName = name.String
	if avatar.Valid {
		u.AvatarRef = &avatar.String
	}
	return u, nil
}

func (r *SqliteUserRepository) Search(ctx context.Context, query string, excludeID string, limit int) ([]chat.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("SqliteUserRepository: nil db")
	}
	if limit <= 0 {
		limit = repository.DefaultSearchLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, avatar_url FROM profiles
		WHERE username IS NOT NULL AND trim(username) <> ''
		  AND id <> ?
		  AND instr(lower(username), lower(?)) > 0
		ORDER BY lower(username), id
		LIMIT ?
	`, excludeID, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]chat.User, 0)
	for rows.Next() {
		var (
			u      chat.User
			avatar sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.DisplayName, &avatar); err != nil {
			return nil, err
		}
		if avatar.Valid {
			ref := avatar.String
			u.AvatarRef = &ref
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
