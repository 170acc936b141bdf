package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"communityhub/internal/models"
)

func (s *Server) getUsers(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, username, email, profile_picture, community_id, created_at, updated_at
		 FROM users ORDER BY id`)
	if err != nil {
		s.log.Error("list_users_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch users")
		return
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.ProfilePicture, &u.CommunityID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch users")
			return
		}
		users = append(users, u)
	}

	c.JSON(http.StatusOK, users)
}

func (s *Server) getUserByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "user id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var u models.User
	err = s.db.Pool.QueryRow(ctx,
		`SELECT id, username, email, profile_picture, community_id, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.ProfilePicture, &u.CommunityID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "user_not_found", "user not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch user")
		return
	}

	c.JSON(http.StatusOK, u)
}

type updateUserRequest struct {
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	ProfilePicture *string `json:"profile_picture"`
	CommunityID    *int64  `json:"community_id"`
}

func (s *Server) updateUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "user id must be a positive integer")
		return
	}

	if id != currentUserID(c) {
		errJSON(c, http.StatusForbidden, "forbidden", "cannot modify another user's account")
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "request body must be valid JSON")
		return
	}
	if req.Username == nil && req.Email == nil && req.ProfilePicture == nil && req.CommunityID == nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "at least one field must be provided for update")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var u models.User
	err = s.db.Pool.QueryRow(ctx,
		`UPDATE users SET
			username        = COALESCE($2, username),
			email           = COALESCE(lower($3), email),
			profile_picture = COALESCE($4, profile_picture),
			community_id    = COALESCE($5, community_id),
			updated_at      = now()
		 WHERE id = $1
		 RETURNING id, username, email, profile_picture, community_id, created_at, updated_at`,
		id, trimPtr(req.Username), trimPtr(req.Email), req.ProfilePicture, req.CommunityID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.ProfilePicture, &u.CommunityID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "user_not_found", "user not found")
		return
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			errJSON(c, http.StatusConflict, "email_taken", "an account with this email already exists")
			return
		}
		s.log.Error("update_user_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update user")
		return
	}

	c.JSON(http.StatusOK, u)
}

func (s *Server) deleteUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "user id must be a positive integer")
		return
	}

	if id != currentUserID(c) {
		errJSON(c, http.StatusForbidden, "forbidden", "cannot delete another user's account")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to delete user")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "user_not_found", "user not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted successfully"})
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
