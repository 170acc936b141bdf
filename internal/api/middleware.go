package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"communityhub/internal/logging"
	"communityhub/internal/models"
)

const (
	ctxUserID = "auth_user_id"
	ctxRole   = "community_role"
)

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range s.cfg.CORSOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		s.log.Info("http_request",
			"method", method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", clientIP,
		)
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		path := c.Request.URL.Path

		// stricter limits on the endpoints that hit the database hardest
		var limit int64 = 120 // default: 120 req/min
		window := 1 * time.Minute

		if strings.HasPrefix(path, "/api/login") {
			limit = 10
		} else if strings.HasPrefix(path, "/api/uploads") {
			limit = 20
		}

		key := fmt.Sprintf("ratelimit:sw:%s:%s", clientIP, path)

		allowed, retryAfter, err := s.redis.SlidingWindowAllow(c.Request.Context(), key, limit, window)
		if err != nil {
			// redis outage must not take the API down with it
			s.log.Warn("rate_limit_error", "error", err)
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			errJSON(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}

// authMiddleware verifies the bearer token and loads the account it was
// issued for into the request context.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			errJSON(c, http.StatusUnauthorized, "missing_token", "access denied, no token provided")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		userID, err := s.tokens.Verify(tokenString)
		if err != nil {
			s.log.Debug("auth_token_rejected", "token", logging.MaskToken(tokenString))
			errJSON(c, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
			c.Abort()
			return
		}

		ctx, cancel := s.ctx(c)
		defer cancel()

		var exists bool
		if err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			errJSON(c, http.StatusInternalServerError, "internal_error", "failed to verify account")
			c.Abort()
			return
		}
		if !exists {
			errJSON(c, http.StatusNotFound, "user_not_found", "account no longer exists")
			c.Abort()
			return
		}

		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	v, _ := c.Get(ctxUserID)
	id, _ := v.(int64)
	return id
}

// requireMembership loads the caller's membership in the community named by
// the :id path param and stores the role for downstream handlers.
func (s *Server) requireMembership() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := s.membershipRole(c)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				errJSON(c, http.StatusForbidden, "not_a_member", "access denied, not a community member")
			} else {
				errJSON(c, http.StatusInternalServerError, "internal_error", "failed to check membership")
			}
			c.Abort()
			return
		}

		c.Set(ctxRole, role)
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := s.membershipRole(c)
		if err != nil || role != models.RoleAdmin {
			errJSON(c, http.StatusForbidden, "admin_required", "admin rights required")
			c.Abort()
			return
		}

		c.Set(ctxRole, role)
		c.Next()
	}
}

func (s *Server) membershipRole(c *gin.Context) (string, error) {
	communityID, err := pathID(c, "id")
	if err != nil {
		return "", pgx.ErrNoRows
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	var role string
	err = s.db.Pool.QueryRow(ctx,
		`SELECT role FROM user_communities WHERE user_id = $1 AND community_id = $2`,
		currentUserID(c), communityID,
	).Scan(&role)
	return role, err
}
