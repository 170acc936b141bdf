package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"communityhub/internal/models"
)

func (s *Server) getMessageReactions(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "message id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, message_id, user_id, emoji, created_at
		 FROM message_reactions WHERE message_id = $1 ORDER BY created_at ASC`, id)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch reactions")
		return
	}
	defer rows.Close()

	reactions := make([]models.MessageReaction, 0)
	for rows.Next() {
		var r models.MessageReaction
		if err := rows.Scan(&r.ID, &r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt); err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch reactions")
			return
		}
		reactions = append(reactions, r)
	}

	c.JSON(http.StatusOK, reactions)
}

type addReactionRequest struct {
	Emoji string `json:"emoji" binding:"required,max=32"`
}

func (s *Server) addMessageReaction(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "message id must be a positive integer")
		return
	}

	var req addReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "emoji is required")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var r models.MessageReaction
	err = s.db.Pool.QueryRow(ctx,
		`INSERT INTO message_reactions (message_id, user_id, emoji)
		 VALUES ($1, $2, $3)
		 RETURNING id, message_id, user_id, emoji, created_at`,
		id, currentUserID(c), req.Emoji,
	).Scan(&r.ID, &r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				errJSON(c, http.StatusConflict, "already_reacted", "reaction already exists")
				return
			case "23503":
				errJSON(c, http.StatusNotFound, "message_not_found", "message not found")
				return
			}
		}
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to add reaction")
		return
	}

	c.JSON(http.StatusCreated, r)
}

func (s *Server) removeMessageReaction(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "message id must be a positive integer")
		return
	}
	emoji := c.Param("emoji")
	if emoji == "" {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "emoji is required")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		id, currentUserID(c), emoji)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to remove reaction")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "reaction_not_found", "reaction not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reaction removed"})
}
