package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"communityhub/internal/models"
)

const postSelect = `SELECT p.id, p.user_id, p.community_id, p.title, p.content, p.created_at, p.updated_at,
       u.id, u.username, u.profile_picture
  FROM posts p
  JOIN users u ON u.id = p.user_id`

func scanPost(row pgx.Row) (models.Post, error) {
	var p models.Post
	var author models.PublicUser
	err := row.Scan(&p.ID, &p.UserID, &p.CommunityID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt,
		&author.ID, &author.Username, &author.ProfilePicture)
	if err != nil {
		return models.Post{}, err
	}
	p.Author = &author
	return p, nil
}

func (s *Server) listPosts(c *gin.Context, query string, args ...any) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("list_posts_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch posts")
		return
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch posts")
			return
		}
		posts = append(posts, p)
	}

	c.JSON(http.StatusOK, posts)
}

func (s *Server) getPosts(c *gin.Context) {
	s.listPosts(c, postSelect+` ORDER BY p.created_at DESC`)
}

func (s *Server) getCommunityPosts(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}
	s.listPosts(c, postSelect+` WHERE p.community_id = $1 ORDER BY p.created_at DESC`, id)
}

type createPostRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Content     string `json:"content" binding:"required"`
	CommunityID *int64 `json:"community_id"`
}

func (s *Server) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "title and content are required")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var id int64
	err := s.db.Pool.QueryRow(ctx,
		`INSERT INTO posts (user_id, community_id, title, content) VALUES ($1, $2, $3, $4) RETURNING id`,
		currentUserID(c), req.CommunityID, req.Title, req.Content,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			errJSON(c, http.StatusBadRequest, "invalid_community", "community does not exist")
			return
		}
		s.log.Error("create_post_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create post")
		return
	}

	post, err := scanPost(s.db.Pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to create post")
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (s *Server) getPostByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "post id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	post, err := scanPost(s.db.Pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		errJSON(c, http.StatusNotFound, "post_not_found", "post not found")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch post")
		return
	}

	c.JSON(http.StatusOK, post)
}

type updatePostRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (s *Server) updatePost(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "post id must be a positive integer")
		return
	}

	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Title == nil && req.Content == nil) {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "title or content must be provided")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE posts SET
			title      = COALESCE($3, title),
			content    = COALESCE($4, content),
			updated_at = now()
		 WHERE id = $1 AND user_id = $2`,
		id, currentUserID(c), req.Title, req.Content)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to update post")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "post_not_found", "post not found or not yours")
		return
	}

	post, err := scanPost(s.db.Pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch post")
		return
	}

	c.JSON(http.StatusOK, post)
}

func (s *Server) deletePost(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "post id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM posts WHERE id = $1 AND user_id = $2`, id, currentUserID(c))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to delete post")
		return
	}
	if tag.RowsAffected() == 0 {
		errJSON(c, http.StatusNotFound, "post_not_found", "post not found or not yours")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "post deleted successfully"})
}
