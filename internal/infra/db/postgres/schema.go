package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The unique constraint on (listing_id, buyer_id, seller_id) backs the
// one-conversation-per-triple invariant under concurrent first contact;
// the in-transaction pre-check alone is not enough. Messages cascade
// with their conversation so deletion never orphans rows.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            text PRIMARY KEY,
		email         text NOT NULL UNIQUE,
		name          text NOT NULL,
		password_hash text NOT NULL,
		avatar_url    text NOT NULL DEFAULT '',
		roles         text[] NOT NULL DEFAULT '{user}',
		created_at    timestamptz NOT NULL,
		updated_at    timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id            text PRIMARY KEY,
		seller_id     text NOT NULL REFERENCES users(id),
		title         text NOT NULL,
		price_cents   bigint NOT NULL DEFAULT 0,
		thumbnail_url text NOT NULL DEFAULT '',
		state         text NOT NULL DEFAULT 'ACTIVE',
		created_at    timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id               uuid PRIMARY KEY,
		listing_id       text NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		buyer_id         text NOT NULL REFERENCES users(id),
		seller_id        text NOT NULL REFERENCES users(id),
		last_activity_at timestamptz,
		created_at       timestamptz NOT NULL,
		CONSTRAINT conversations_triple_unique UNIQUE (listing_id, buyer_id, seller_id),
		CONSTRAINT conversations_no_self CHECK (buyer_id <> seller_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id              uuid PRIMARY KEY,
		conversation_id uuid NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id       text NOT NULL REFERENCES users(id),
		body            text NOT NULL,
		is_read         boolean NOT NULL DEFAULT false,
		sent_at         timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_conversation_sent_idx
		ON messages (conversation_id, sent_at DESC)`,
	`CREATE INDEX IF NOT EXISTS messages_unread_idx
		ON messages (conversation_id, sender_id) WHERE NOT is_read`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id              uuid PRIMARY KEY,
		name            text NOT NULL,
		aggregate       text NOT NULL DEFAULT '',
		payload         jsonb NOT NULL,
		headers         jsonb NOT NULL DEFAULT '{}',
		state           text NOT NULL DEFAULT 'NEW',
		attempts        int NOT NULL DEFAULT 0,
		next_attempt_at timestamptz NOT NULL,
		occurred_at     timestamptz NOT NULL,
		claimed_by      text NOT NULL DEFAULT '',
		claimed_at      timestamptz,
		sent_at         timestamptz,
		last_error      text NOT NULL DEFAULT '',
		created_at      timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_pending_idx
		ON outbox_events (state, next_attempt_at)`,
}

// Bootstrap applies the schema. Statements are idempotent so the call is
// safe on every start.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: bootstrap schema: %w", err)
		}
	}
	return nil
}
