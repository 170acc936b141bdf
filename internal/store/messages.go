package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"communityhub/internal/db"
	"communityhub/internal/models"
)

var ErrNotFound = errors.New("not found")

// Messages is the persistence gateway for chat messages. It is the only
// store the realtime gateway talks to; the REST handlers also use it for
// history reads so both surfaces return identical rows.
type Messages struct {
	db *db.DB
}

func NewMessages(dbConn *db.DB) *Messages {
	return &Messages{db: dbConn}
}

// Create persists one message and returns it with the server-assigned id
// and creation timestamp.
func (m *Messages) Create(ctx context.Context, userID int64, content string, communityID *int64) (models.Message, error) {
	var msg models.Message
	err := m.db.Pool.QueryRow(ctx,
		`INSERT INTO messages (user_id, community_id, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, community_id, content, created_at`,
		userID, communityID, content,
	).Scan(&msg.ID, &msg.UserID, &msg.CommunityID, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// GetByID returns one message with its author joined in.
func (m *Messages) GetByID(ctx context.Context, id int64) (models.Message, error) {
	var msg models.Message
	var author models.PublicUser
	err := m.db.Pool.QueryRow(ctx,
		`SELECT m.id, m.user_id, m.community_id, m.content, m.created_at,
		        u.id, u.username, u.profile_picture
		 FROM messages m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.id = $1`,
		id,
	).Scan(&msg.ID, &msg.UserID, &msg.CommunityID, &msg.Content, &msg.CreatedAt,
		&author.ID, &author.Username, &author.ProfilePicture)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Message{}, ErrNotFound
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("select message: %w", err)
	}
	msg.User = &author
	return msg, nil
}

// ListByCommunity returns a community's messages oldest-first, each with
// its author joined in, matching what the socket broadcast carries.
func (m *Messages) ListByCommunity(ctx context.Context, communityID int64) ([]models.Message, error) {
	rows, err := m.db.Pool.Query(ctx,
		`SELECT m.id, m.user_id, m.community_id, m.content, m.created_at,
		        u.id, u.username, u.profile_picture
		 FROM messages m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.community_id = $1
		 ORDER BY m.created_at ASC`,
		communityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list community messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// List returns messages on the global (community-less) channel.
func (m *Messages) List(ctx context.Context) ([]models.Message, error) {
	rows, err := m.db.Pool.Query(ctx,
		`SELECT m.id, m.user_id, m.community_id, m.content, m.created_at,
		        u.id, u.username, u.profile_picture
		 FROM messages m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.community_id IS NULL
		 ORDER BY m.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		var author models.PublicUser
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.CommunityID, &msg.Content, &msg.CreatedAt,
			&author.ID, &author.Username, &author.ProfilePicture); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.User = &author
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
