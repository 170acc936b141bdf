package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"communityhub/internal/models"
)

func (s *Server) getCommunities(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, name, settings, pin_board, created_at FROM communities ORDER BY id`)
	if err != nil {
		s.log.Error("list_communities_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch communities")
		return
	}
	defer rows.Close()

	communities := make([]models.Community, 0)
	for rows.Next() {
		var com models.Community
		if err := rows.Scan(&com.ID, &com.Name, &com.Settings, &com.PinBoard, &com.CreatedAt); err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch communities")
			return
		}
		communities = append(communities, com)
	}

	c.JSON(http.StatusOK, communities)
}

type createCommunityRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

func (s *Server) createCommunity(c *gin.Context) {
	var req createCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "name is required")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	// creating a community also makes the creator its first admin
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create community")
		return
	}
	defer tx.Rollback(ctx)

	var com models.Community
	err = tx.QueryRow(ctx,
		`INSERT INTO communities (name, settings) VALUES ($1, $2)
		 RETURNING id, name, settings, pin_board, created_at`,
		req.Name, models.DefaultCommunitySettings(),
	).Scan(&com.ID, &com.Name, &com.Settings, &com.PinBoard, &com.CreatedAt)
	if err != nil {
		s.log.Error("create_community_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create community")
		return
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO user_communities (user_id, community_id, role) VALUES ($1, $2, $3)`,
		currentUserID(c), com.ID, models.RoleAdmin,
	); err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create community")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create community")
		return
	}

	c.JSON(http.StatusCreated, com)
}

func (s *Server) getCommunityByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var com models.Community
	err = s.db.Pool.QueryRow(ctx,
		`SELECT id, name, settings, pin_board, created_at FROM communities WHERE id = $1`, id,
	).Scan(&com.ID, &com.Name, &com.Settings, &com.PinBoard, &com.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "community_not_found", "community not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch community")
		return
	}

	c.JSON(http.StatusOK, com)
}

func (s *Server) updateCommunity(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}

	var req createCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "name is required")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var com models.Community
	err = s.db.Pool.QueryRow(ctx,
		`UPDATE communities SET name = $2 WHERE id = $1
		 RETURNING id, name, settings, pin_board, created_at`,
		id, req.Name,
	).Scan(&com.ID, &com.Name, &com.Settings, &com.PinBoard, &com.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "community_not_found", "community not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update community")
		return
	}

	c.JSON(http.StatusOK, com)
}

func (s *Server) deleteCommunity(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM communities WHERE id = $1`, id)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to delete community")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "community_not_found", "community not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "community deleted successfully"})
}

func (s *Server) updateCommunitySettings(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}

	var settings models.CommunitySettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "settings must include the feature flags")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var com models.Community
	err = s.db.Pool.QueryRow(ctx,
		`UPDATE communities SET settings = $2 WHERE id = $1
		 RETURNING id, name, settings, pin_board, created_at`,
		id, settings,
	).Scan(&com.ID, &com.Name, &com.Settings, &com.PinBoard, &com.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "community_not_found", "community not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update settings")
		return
	}

	c.JSON(http.StatusOK, com)
}

func (s *Server) updateCommunityPinBoard(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}

	var pinBoard json.RawMessage
	if err := c.ShouldBindJSON(&pinBoard); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "pin board must be a JSON array")
		return
	}
	if len(pinBoard) == 0 || pinBoard[0] != '[' {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "pin board must be a JSON array")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var com models.Community
	err = s.db.Pool.QueryRow(ctx,
		`UPDATE communities SET pin_board = $2 WHERE id = $1
		 RETURNING id, name, settings, pin_board, created_at`,
		id, pinBoard,
	).Scan(&com.ID, &com.Name, &com.Settings, &com.PinBoard, &com.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "community_not_found", "community not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update pin board")
		return
	}

	c.JSON(http.StatusOK, com)
}

type memberResponse struct {
	models.PublicUser
	Role string `json:"role"`
}

func (s *Server) getCommunityMembers(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx,
		`SELECT u.id, u.username, u.profile_picture, uc.role
		 FROM user_communities uc
		 JOIN users u ON u.id = uc.user_id
		 WHERE uc.community_id = $1
		 ORDER BY u.username`, id)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch members")
		return
	}
	defer rows.Close()

	members := make([]memberResponse, 0)
	for rows.Next() {
		var m memberResponse
		if err := rows.Scan(&m.ID, &m.Username, &m.ProfilePicture, &m.Role); err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch members")
			return
		}
		members = append(members, m)
	}

	c.JSON(http.StatusOK, members)
}

func (s *Server) joinCommunity(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var membership models.Membership
	err = s.db.Pool.QueryRow(ctx,
		`INSERT INTO user_communities (user_id, community_id, role) VALUES ($1, $2, $3)
		 RETURNING user_id, community_id, role, created_at`,
		currentUserID(c), id, models.RoleMember,
	).Scan(&membership.UserID, &membership.CommunityID, &membership.Role, &membership.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				errJSON(c, http.StatusConflict, "already_member", "already a member of this community")
				return
			case "23503":
				errJSON(c, http.StatusNotFound, "community_not_found", "community not found")
				return
			}
		}
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to join community")
		return
	}

	c.JSON(http.StatusCreated, membership)
}

func (s *Server) leaveCommunity(c *gin.Context) {
	communityID, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "user id must be a positive integer")
		return
	}

	// members remove themselves; admins may remove anyone
	if userID != currentUserID(c) {
		role, roleErr := s.membershipRole(c)
		if roleErr != nil || role != models.RoleAdmin {
			errJSON(c, http.StatusForbidden, "admin_required", "admin rights required")
			return
		}
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM user_communities WHERE user_id = $1 AND community_id = $2`,
		userID, communityID)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to leave community")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "membership_not_found", "membership not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left community"})
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=member admin"`
}

func (s *Server) updateMemberRole(c *gin.Context) {
	communityID, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "user id must be a positive integer")
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "role must be member or admin")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE user_communities SET role = $3, updated_at = now()
		 WHERE user_id = $1 AND community_id = $2`,
		userID, communityID, req.Role)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update role")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "membership_not_found", "membership not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}
