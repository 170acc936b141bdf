package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"communityhub/internal/models"
	"communityhub/internal/security"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "email and password are required")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var user models.User
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, username, email, password, profile_picture, community_id
		 FROM users WHERE email = lower($1)`,
		strings.TrimSpace(req.Email),
	).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.ProfilePicture, &user.CommunityID)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && !security.CheckPassword(user.Password, req.Password)) {
		// same answer for unknown email and wrong password
		errJSON(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	if err != nil {
		s.log.Error("login_query_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.Error("token_issue_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": models.PublicUser{
			ID:             user.ID,
			Username:       user.Username,
			ProfilePicture: user.ProfilePicture,
		},
	})
}

type createUserRequest struct {
	Username       string  `json:"username" binding:"required,max=64"`
	Email          string  `json:"email" binding:"required,email"`
	Password       string  `json:"password" binding:"required,min=8,max=100"`
	ProfilePicture *string `json:"profile_picture"`
	CommunityID    *int64  `json:"community_id"`
}

func (s *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "username, email and a password of 8-100 characters are required")
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var user models.User
	err = s.db.Pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password, profile_picture, community_id)
		 VALUES ($1, lower($2), $3, $4, $5)
		 RETURNING id, username, email, profile_picture, community_id, created_at, updated_at`,
		strings.TrimSpace(req.Username), strings.TrimSpace(req.Email), hash, req.ProfilePicture, req.CommunityID,
	).Scan(&user.ID, &user.Username, &user.Email, &user.ProfilePicture, &user.CommunityID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation
				errJSON(c, http.StatusConflict, "email_taken", "an account with this email already exists")
				return
			case "23503": // foreign_key_violation
				errJSON(c, http.StatusBadRequest, "invalid_community", "community does not exist")
				return
			}
		}
		s.log.Error("create_user_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "error creating user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created successfully", "user": user})
}
