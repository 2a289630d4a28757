package adapter

import (
	"context"
	"errors"
	"fmt"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgForeignKeyViolation = "23503"

type PgChatRepository struct {
	pool *pgxpool.Pool
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var errNilPool = errors.New("PgChatRepository: nil pool")

func (r *PgChatRepository) CreateDirectConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, bool, error) {
	if r == nil || r.pool == nil {
		return chat.Conversation{}, false, errNilPool
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return chat.Conversation{}, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// A concurrent insert of the same pair blocks here until the other
	// transaction settles, then reports zero rows instead of failing.
	ct, err := tx.Exec(ctx, `
		INSERT INTO chat.conversation (id, created_at, user_low, user_high)
		VALUES ($1::uuid, $2, $3::uuid, $4::uuid)
		ON CONFLICT (user_low, user_high) DO NOTHING
	`, c.ID, c.CreatedAt, c.UserLow, c.UserHigh)
	if err != nil {
		return chat.Conversation{}, false, fmt.Errorf("insert conversation: %w", err)
	}
	if ct.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		existing, err := r.FindDirectConversation(ctx, c.UserLow, c.UserHigh)
		if err != nil {
			return chat.Conversation{}, false, err
		}
		return existing, false, nil
	}

	for _, p := range c.Participants() {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat.participant (conversation_id, user_id, joined_at)
			VALUES ($1::uuid, $2::uuid, $3)
		`, p.ConversationID, p.UserID, p.JoinedAt); err != nil {
			return chat.Conversation{}, false, fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return chat.Conversation{}, false, fmt.Errorf("commit: %w", err)
	}
	return c, true, nil
}

func (r *PgChatRepository) FindDirectConversation(ctx context.Context, userLow string, userHigh string) (chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return chat.Conversation{}, errNilPool
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, created_at, user_low::text, user_high::text
		FROM chat.conversation
		WHERE user_low = $1::uuid AND user_high = $2::uuid
	`, userLow, userHigh)
	return scanConversation(row)
}

func (r *PgChatRepository) GetConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return chat.Conversation{}, errNilPool
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, created_at, user_low::text, user_high::text
		FROM chat.conversation
		WHERE id = $1::uuid
	`, conversationID)
	return scanConversation(row)
}

func (r *PgChatRepository) ListConversationsByUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id::text, c.created_at, c.user_low::text, c.user_high::text
		FROM chat.conversation c
		JOIN chat.participant p ON p.conversation_id = c.id
		WHERE p.user_id = $1::uuid
		ORDER BY c.created_at, c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := make([]chat.Conversation, 0)
	for rows.Next() {
		var c chat.Conversation
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UserLow, &c.UserHigh); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return convs, nil
}

func (r *PgChatRepository) ListParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id::text, user_id::text, joined_at
		FROM chat.participant
		WHERE conversation_id = $1::uuid
		ORDER BY user_id
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []chat.Participant
	for rows.Next() {
		var p chat.Participant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(members) == 0 {
		return nil, chat.ErrConversationNotFound
	}
	return members, nil
}

func (r *PgChatRepository) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errNilPool
	}
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat.participant
			WHERE conversation_id = $1::uuid AND user_id = $2::uuid
		)
	`, conversationID, userID).Scan(&ok)
	return ok, err
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if r == nil || r.pool == nil {
		return chat.Message{}, errNilPool
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return chat.Message{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialize writers per conversation so created_at stays monotonic.
	var locked string
	err = tx.QueryRow(ctx, `SELECT id::text FROM chat.conversation WHERE id = $1::uuid FOR UPDATE`, m.ConversationID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Message{}, chat.ErrConversationNotFound
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("lock conversation: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO chat.message (id, conversation_id, sender_id, content, created_at, dedupe_key)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4,
		       GREATEST(clock_timestamp(), COALESCE(MAX(created_at), '-infinity'::timestamptz)), $5
		FROM chat.message
		WHERE conversation_id = $2::uuid
		ON CONFLICT (conversation_id, sender_id, dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
		RETURNING created_at
	`, m.ID, m.ConversationID, m.SenderID, m.Content, m.DedupeKey).Scan(&m.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// dedupe hit: hand back the stored original
		_ = tx.Rollback(ctx)
		return r.findByDedupeKey(ctx, m)
	case isForeignKeyViolation(err):
		return chat.Message{}, chat.ErrNotParticipant
	case err != nil:
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return chat.Message{}, fmt.Errorf("commit: %w", err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

func (r *PgChatRepository) findByDedupeKey(ctx context.Context, m chat.Message) (chat.Message, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, created_at, dedupe_key
		FROM chat.message
		WHERE conversation_id = $1::uuid AND sender_id = $2::uuid AND dedupe_key = $3
	`, m.ConversationID, m.SenderID, m.DedupeKey)
	existing, err := scanMessage(row)
	if err != nil {
		return chat.Message{}, fmt.Errorf("load deduplicated message: %w", err)
	}
	return existing, nil
}

func (r *PgChatRepository) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	if _, err := r.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, created_at, dedupe_key
		FROM chat.message
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (r *PgChatRepository) GetLatestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	if _, err := r.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, created_at, dedupe_key
		FROM chat.message
		WHERE conversation_id = $1::uuid
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, conversationID)
	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func scanConversation(row pgx.Row) (chat.Conversation, error) {
	var c chat.Conversation
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UserLow, &c.UserHigh)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Conversation{}, chat.ErrConversationNotFound
	}
	if err != nil {
		return chat.Conversation{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func scanMessage(row pgx.Row) (chat.Message, error) {
	var (
		msg    chat.Message
		dedupe *string
	)
	if err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.CreatedAt, &dedupe); err != nil {
		return chat.Message{}, err
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.DedupeKey = dedupe
	return msg, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
