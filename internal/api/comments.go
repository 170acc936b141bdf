package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"communityhub/internal/models"
)

const commentSelect = `SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, c.updated_at,
       u.id, u.username, u.profile_picture
  FROM comments c
  JOIN users u ON u.id = c.user_id`

func scanComment(row pgx.Row) (models.Comment, error) {
	var cm models.Comment
	var author models.PublicUser
	err := row.Scan(&cm.ID, &cm.PostID, &cm.UserID, &cm.Content, &cm.CreatedAt, &cm.UpdatedAt,
		&author.ID, &author.Username, &author.ProfilePicture)
	if err != nil {
		return models.Comment{}, err
	}
	cm.Author = &author
	return cm, nil
}

func (s *Server) getPostComments(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "post id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, commentSelect+` WHERE c.post_id = $1 ORDER BY c.created_at ASC`, postID)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch comments")
		return
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch comments")
			return
		}
		comments = append(comments, cm)
	}

	c.JSON(http.StatusOK, comments)
}

type createCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) createComment(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "post id must be a positive integer")
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "content is required")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var id int64
	err = s.db.Pool.QueryRow(ctx,
		`INSERT INTO comments (post_id, user_id, content) VALUES ($1, $2, $3) RETURNING id`,
		postID, currentUserID(c), req.Content,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			errJSON(c, http.StatusNotFound, "post_not_found", "post not found")
			return
		}
		s.log.Error("create_comment_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create comment")
		return
	}

	cm, err := scanComment(s.db.Pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create comment")
		return
	}

	c.JSON(http.StatusCreated, cm)
}

func (s *Server) getCommentByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "comment id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	cm, err := scanComment(s.db.Pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "comment_not_found", "comment not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch comment")
		return
	}

	c.JSON(http.StatusOK, cm)
}

func (s *Server) updateComment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "comment id must be a positive integer")
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "content is required")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE comments SET content = $3, updated_at = now()
		 WHERE id = $1 AND user_id = $2`,
		id, currentUserID(c), req.Content)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update comment")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "comment_not_found", "comment not found or not yours")
		return
	}

	cm, err := scanComment(s.db.Pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch comment")
		return
	}

	c.JSON(http.StatusOK, cm)
}

func (s *Server) deleteComment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "comment id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM comments WHERE id = $1 AND user_id = $2`, id, currentUserID(c))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to delete comment")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "comment_not_found", "comment not found or not yours")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment deleted successfully"})
}
