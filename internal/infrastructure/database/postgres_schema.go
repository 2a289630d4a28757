package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema is applied in order; every statement is idempotent.
//
// The (user_low, user_high) unique constraint is what keeps at most one
// conversation per user pair, including under concurrent creation.
var postgresSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS chat`,
	`CREATE TABLE IF NOT EXISTS public.profiles (
		id         uuid PRIMARY KEY,
		username   text,
		avatar_url text
	)`,
	`CREATE TABLE IF NOT EXISTS chat.conversation (
		id         uuid PRIMARY KEY,
		created_at timestamptz NOT NULL DEFAULT now(),
		user_low   uuid NOT NULL,
		user_high  uuid NOT NULL,
		CONSTRAINT conversation_pair_ordered CHECK (user_low < user_high),
		CONSTRAINT conversation_pair_unique UNIQUE (user_low, user_high)
	)`,
	`CREATE TABLE IF NOT EXISTS chat.participant (
		conversation_id uuid NOT NULL REFERENCES chat.conversation(id) ON DELETE CASCADE,
		user_id         uuid NOT NULL,
		joined_at       timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (conversation_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS participant_user_idx ON chat.participant (user_id)`,
	`CREATE TABLE IF NOT EXISTS chat.message (
		id              uuid PRIMARY KEY,
		conversation_id uuid NOT NULL,
		sender_id       uuid NOT NULL,
		content         text NOT NULL CHECK (length(btrim(content)) > 0),
		created_at      timestamptz NOT NULL,
		dedupe_key      text,
		FOREIGN KEY (conversation_id, sender_id)
			REFERENCES chat.participant (conversation_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS message_order_idx ON chat.message (conversation_id, created_at, id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS message_dedupe_idx
		ON chat.message (conversation_id, sender_id, dedupe_key)
		WHERE dedupe_key IS NOT NULL`,
}

// MigratePostgres creates the chat schema if it does not exist yet.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: apply schema step %d: %w", i+1, err)
		}
	}
	return nil
}
