package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"communityhub/internal/models"
)

const listSelect = `SELECT id, user_id, community_id, title, category, privacy, created_at, updated_at
  FROM lists`

func scanList(row pgx.Row) (models.List, error) {
	var l models.List
	err := row.Scan(&l.ID, &l.UserID, &l.CommunityID, &l.Title, &l.Category, &l.Privacy, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (s *Server) queryLists(c *gin.Context, query string, args ...any) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("list_lists_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch lists")
		return
	}
	defer rows.Close()

	lists := make([]models.List, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch lists")
			return
		}
		lists = append(lists, l)
	}

	c.JSON(http.StatusOK, lists)
}

// Private lists are visible only to their owner.
func (s *Server) getLists(c *gin.Context) {
	s.queryLists(c, listSelect+` WHERE privacy = 'public' OR user_id = $1 ORDER BY created_at DESC`,
		currentUserID(c))
}

func (s *Server) getCommunityLists(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}
	s.queryLists(c, listSelect+` WHERE community_id = $1 AND (privacy = 'public' OR user_id = $2) ORDER BY created_at DESC`,
		id, currentUserID(c))
}

type createListRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Category    *string `json:"category"`
	Privacy     string  `json:"privacy" binding:"omitempty,oneof=public private"`
	CommunityID *int64  `json:"community_id"`
}

func (s *Server) createList(c *gin.Context) {
	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "title is required and privacy must be public or private")
		return
	}
	if req.Privacy == "" {
		req.Privacy = "public"
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	list, err := scanList(s.db.Pool.QueryRow(ctx,
		`INSERT INTO lists (user_id, community_id, title, category, privacy)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, community_id, title, category, privacy, created_at, updated_at`,
		currentUserID(c), req.CommunityID, req.Title, req.Category, req.Privacy))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			errJSON(c, http.StatusBadRequest, "invalid_community", "community does not exist")
			return
		}
		s.log.Error("create_list_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create list")
		return
	}

	c.JSON(http.StatusCreated, list)
}

// loadVisibleList fetches a list enforcing the privacy rule. Returns
// pgx.ErrNoRows both for missing lists and for private lists owned by
// someone else, so the handlers can't leak their existence.
func (s *Server) loadVisibleList(c *gin.Context, id int64) (models.List, error) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	return scanList(s.db.Pool.QueryRow(ctx,
		listSelect+` WHERE id = $1 AND (privacy = 'public' OR user_id = $2)`,
		id, currentUserID(c)))
}

func (s *Server) getListByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "list id must be a positive integer")
		return
	}

	list, err := s.loadVisibleList(c, id)
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "list_not_found", "list not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch list")
		return
	}

	c.JSON(http.StatusOK, list)
}

type updateListRequest struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
	Privacy  *string `json:"privacy" binding:"omitempty,oneof=public private"`
}

func (s *Server) updateList(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "list id must be a positive integer")
		return
	}

	var req updateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "privacy must be public or private")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	list, err := scanList(s.db.Pool.QueryRow(ctx,
		`UPDATE lists SET
			title      = COALESCE($3, title),
			category   = COALESCE($4, category),
			privacy    = COALESCE($5, privacy),
			updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, community_id, title, category, privacy, created_at, updated_at`,
		id, currentUserID(c), req.Title, req.Category, req.Privacy))
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "list_not_found", "list not found or not yours")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update list")
		return
	}

	c.JSON(http.StatusOK, list)
}

func (s *Server) deleteList(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "list id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM lists WHERE id = $1 AND user_id = $2`, id, currentUserID(c))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to delete list")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "list_not_found", "list not found or not yours")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "list deleted successfully"})
}

func (s *Server) getListItems(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "list id must be a positive integer")
		return
	}

	if _, err := s.loadVisibleList(c, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			errJSON(c, http.StatusNotFound, "list_not_found", "list not found")
			return
		}
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch list")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, list_id, name, is_completed, created_at, updated_at
		 FROM list_items WHERE list_id = $1 ORDER BY created_at ASC`, id)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch list items")
		return
	}
	defer rows.Close()

	items := make([]models.ListItem, 0)
	for rows.Next() {
		var it models.ListItem
		if err := rows.Scan(&it.ID, &it.ListID, &it.Name, &it.IsCompleted, &it.CreatedAt, &it.UpdatedAt); err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch list items")
			return
		}
		items = append(items, it)
	}

	c.JSON(http.StatusOK, items)
}

type createListItemRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

func (s *Server) createListItem(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "list id must be a positive integer")
		return
	}

	var req createListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "name is required")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	// Only the owner can add items.
	var ownerID int64
	err = s.db.Pool.QueryRow(ctx, `SELECT user_id FROM lists WHERE id = $1`, id).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "list_not_found", "list not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create list item")
		return
	}
	if ownerID != currentUserID(c) {
		errJSON(c, http.StatusForbidden, "forbidden", "only the list owner can add items")
		return
	}

	var it models.ListItem
	err = s.db.Pool.QueryRow(ctx,
		`INSERT INTO list_items (list_id, name)
		 VALUES ($1, $2)
		 RETURNING id, list_id, name, is_completed, created_at, updated_at`,
		id, req.Name,
	).Scan(&it.ID, &it.ListID, &it.Name, &it.IsCompleted, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create list item")
		return
	}

	c.JSON(http.StatusCreated, it)
}

type updateListItemRequest struct {
	Name        *string `json:"name"`
	IsCompleted *bool   `json:"is_completed"`
}

func (s *Server) updateListItem(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "item id must be a positive integer")
		return
	}

	var req updateListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "request body must be valid JSON")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var it models.ListItem
	err = s.db.Pool.QueryRow(ctx,
		`UPDATE list_items li SET
			name         = COALESCE($3, li.name),
			is_completed = COALESCE($4, li.is_completed),
			updated_at   = now()
		 FROM lists l
		 WHERE li.id = $1 AND l.id = li.list_id AND l.user_id = $2
		 RETURNING li.id, li.list_id, li.name, li.is_completed, li.created_at, li.updated_at`,
		id, currentUserID(c), req.Name, req.IsCompleted,
	).Scan(&it.ID, &it.ListID, &it.Name, &it.IsCompleted, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "item_not_found", "list item not found or not yours")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update list item")
		return
	}

	c.JSON(http.StatusOK, it)
}

func (s *Server) deleteListItem(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "item id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM list_items li
		 USING lists l
		 WHERE li.id = $1 AND l.id = li.list_id AND l.user_id = $2`,
		id, currentUserID(c))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to delete list item")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "item_not_found", "list item not found or not yours")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "list item deleted successfully"})
}
