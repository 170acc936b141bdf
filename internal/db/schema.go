package db

import (
	"context"
	"fmt"
)

// schemaStatements are executed in order at startup. All statements are
// idempotent so a restart against an existing database is safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS communities (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		settings    JSONB NOT NULL DEFAULT '{"calendar":true,"lists":true,"posts":true,"events":true,"messages":true}',
		pin_board   JSONB NOT NULL DEFAULT '[]',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id               BIGSERIAL PRIMARY KEY,
		community_id     BIGINT REFERENCES communities(id) ON DELETE SET NULL,
		username         VARCHAR(64) NOT NULL,
		email            VARCHAR(255) NOT NULL UNIQUE,
		password         VARCHAR(255) NOT NULL,
		profile_picture  VARCHAR(255),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_communities (
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		community_id  BIGINT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
		role          VARCHAR(16) NOT NULL DEFAULT 'member',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, community_id)
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		community_id  BIGINT REFERENCES communities(id) ON DELETE CASCADE,
		title         VARCHAR(255) NOT NULL,
		content       TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id          BIGSERIAL PRIMARY KEY,
		post_id     BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content     TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		community_id  BIGINT REFERENCES communities(id) ON DELETE CASCADE,
		title         VARCHAR(255) NOT NULL,
		description   TEXT,
		location      VARCHAR(255),
		type          VARCHAR(64),
		date          DATE NOT NULL,
		start_time    TIMESTAMPTZ NOT NULL,
		end_time      TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS event_attendees (
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		event_id    BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, event_id)
	)`,
	`CREATE TABLE IF NOT EXISTS lists (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		community_id  BIGINT REFERENCES communities(id) ON DELETE CASCADE,
		title         VARCHAR(255) NOT NULL,
		category      VARCHAR(64),
		privacy       VARCHAR(16) NOT NULL DEFAULT 'private',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS list_items (
		id            BIGSERIAL PRIMARY KEY,
		list_id       BIGINT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
		name          VARCHAR(255) NOT NULL,
		is_completed  BOOLEAN NOT NULL DEFAULT false,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		community_id  BIGINT REFERENCES communities(id) ON DELETE CASCADE,
		content       TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS message_reactions (
		id          BIGSERIAL PRIMARY KEY,
		message_id  BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		emoji       VARCHAR(32) NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (message_id, user_id, emoji)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_community_created ON messages (community_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_community ON posts (community_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_list_items_list ON list_items (list_id)`,
	`CREATE INDEX IF NOT EXISTS idx_event_attendees_event ON event_attendees (event_id)`,
}

// EnsureSchema creates all tables and indexes if they do not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}
	return nil
}
