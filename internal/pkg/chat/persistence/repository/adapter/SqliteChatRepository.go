package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SqliteChatRepository stores chat state in an embedded SQLite database opened
// by database.OpenSQLite. Timestamps are unix nanoseconds.
type SqliteChatRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ repository.ChatRepository = (*SqliteChatRepository)(nil)

func NewSqliteChatRepository(db *sql.DB) *SqliteChatRepository {
	return &SqliteChatRepository{db: db, now: time.Now}
}

var errNilDB = errors.New("SqliteChatRepository: nil db")

func (r *SqliteChatRepository) CreateDirectConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, bool, error) {
	if r == nil || r.db == nil {
		return chat.Conversation{}, false, errNilDB
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Conversation{}, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, user_low, user_high)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_low, user_high) DO NOTHING
	`, c.ID, c.CreatedAt.UnixNano(), c.UserLow, c.UserHigh)
	if err != nil {
		return chat.Conversation{}, false, fmt.Errorf("insert conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return chat.Conversation{}, false, fmt.Errorf("insert conversation: %w", err)
	}
	if affected == 0 {
		// release the single connection before reading through r.db
		_ = tx.Rollback()
		existing, err := r.FindDirectConversation(ctx, c.UserLow, c.UserHigh)
		if err != nil {
			return chat.Conversation{}, false, err
		}
		return existing, false, nil
	}

	for _, p := range c.Participants() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO participants (conversation_id, user_id, joined_at) VALUES (?, ?, ?)
		`, p.ConversationID, p.UserID, p.JoinedAt.UnixNano()); err != nil {
			return chat.Conversation{}, false, fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return chat.Conversation{}, false, fmt.Errorf("commit: %w", err)
	}
	return c, true, nil
}

func (r *SqliteChatRepository) FindDirectConversation(ctx context.Context, userLow string, userHigh string) (chat.Conversation, error) {
	if r == nil || r.db == nil {
		return chat.Conversation{}, errNilDB
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, user_low, user_high FROM conversations
		WHERE user_low = ? AND user_high = ?
	`, userLow, userHigh)
	return scanSqliteConversation(row)
}

func (r *SqliteChatRepository) GetConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	if r == nil || r.db == nil {
		return chat.Conversation{}, errNilDB
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, user_low, user_high FROM conversations WHERE id = ?
	`, conversationID)
	return scanSqliteConversation(row)
}

func (r *SqliteChatRepository) ListConversationsByUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.created_at, c.user_low, c.user_high
		FROM conversations c
		JOIN participants p ON p.conversation_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.created_at, c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := make([]chat.Conversation, 0)
	for rows.Next() {
		c, err := scanSqliteConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *SqliteChatRepository) ListParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT conversation_id, user_id, joined_at FROM participants
		WHERE conversation_id = ?
		ORDER BY user_id
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []chat.Participant
	for rows.Next() {
		var (
			p      chat.Participant
			joined int64
		)
		if err := rows.Scan(&p.ConversationID, &p.UserID, &joined); err != nil {
			return nil, err
		}
		p.JoinedAt = time.Unix(0, joined).UTC()
		members = append(members, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, chat.ErrConversationNotFound
	}
	return members, nil
}

func (r *SqliteChatRepository) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errNilDB
	}
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM participants WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID).Scan(&n)
	return n > 0, err
}

func (r *SqliteChatRepository) SaveMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if r == nil || r.db == nil {
		return chat.Message{}, errNilDB
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Message{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM conversations WHERE id = ?`, m.ConversationID).Scan(&exists); err != nil {
		return chat.Message{}, fmt.Errorf("load conversation: %w", err)
	}
	if exists == 0 {
		return chat.Message{}, chat.ErrConversationNotFound
	}

	if m.DedupeKey != nil {
		row := tx.QueryRowContext(ctx, `
			SELECT id, conversation_id, sender_id, content, created_at, dedupe_key FROM messages
			WHERE conversation_id = ? AND sender_id = ? AND dedupe_key = ?
		`, m.ConversationID, m.SenderID, *m.DedupeKey)
		existing, err := scanSqliteMessage(row)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return chat.Message{}, fmt.Errorf("load deduplicated message: %w", err)
		}
	}

	var lastNano sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(created_at) FROM messages WHERE conversation_id = ?`, m.ConversationID).Scan(&lastNano); err != nil {
		return chat.Message{}, fmt.Errorf("load latest timestamp: %w", err)
	}
	var last *time.Time
	if lastNano.Valid {
		t := time.Unix(0, lastNano.Int64).UTC()
		last = &t
	}
	m.CreatedAt = chat.NextTimestamp(r.now(), last)

	var dedupe any
	if m.DedupeKey != nil {
		dedupe = *m.DedupeKey
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at, dedupe_key)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.ConversationID, m.SenderID, m.Content, m.CreatedAt.UnixNano(), dedupe)
	if isSqliteForeignKeyViolation(err) {
		return chat.Message{}, chat.ErrNotParticipant
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return chat.Message{}, fmt.Errorf("commit: %w", err)
	}
	return m, nil
}

func (r *SqliteChatRepository) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}
	if _, err := r.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at, dedupe_key FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0)
	for rows.Next() {
		msg, err := scanSqliteMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *SqliteChatRepository) GetLatestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	if r == nil || r.db == nil {
		return nil, errNilDB
	}
	if _, err := r.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at, dedupe_key FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, conversationID)
	msg, err := scanSqliteMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSqliteConversation(row sqliteScanner) (chat.Conversation, error) {
	var (
		c       chat.Conversation
		created int64
	)
	err := row.Scan(&c.ID, &created, &c.UserLow, &c.UserHigh)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Conversation{}, chat.ErrConversationNotFound
	}
	if err != nil {
		return chat.Conversation{}, err
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	return c, nil
}

func scanSqliteMessage(row sqliteScanner) (chat.Message, error) {
	var (
		msg     chat.Message
		created int64
		dedupe  sql.NullString
	)
	if err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &created, &dedupe); err != nil {
		return chat.Message{}, err
	}
	msg.CreatedAt = time.Unix(0, created).UTC()
	if dedupe.Valid {
		key := dedupe.String
		msg.DedupeKey = &key
	}
	return msg, nil
}

func isSqliteForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
