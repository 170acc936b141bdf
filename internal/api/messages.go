package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"communityhub/internal/store"
)

const messageCacheTTL = 30 * time.Second

func (s *Server) getMessages(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	messages, err := s.messages.List(ctx)
	if err != nil {
		s.log.Error("list_messages_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch messages")
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (s *Server) getMessageByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "message id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	msg, err := s.messages.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		errJSON(c, http.StatusNotFound, "message_not_found", "message not found")
		return
	}
	if err != nil {
		s.log.Error("get_message_failed", "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch message")
		return
	}

	c.JSON(http.StatusOK, msg)
}

// getCommunityMessages serves chat history. The result is cached briefly in
// redis; a page-load burst from a large community would otherwise hammer the
// same query.
func (s *Server) getCommunityMessages(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_id", "community id must be a positive integer")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	cacheKey := fmt.Sprintf("messages:community:%d", id)
	if cached, err := s.redis.Get(ctx, cacheKey); err == nil && cached != "" {
		c.Header("X-Cache", "HIT")
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	}

	messages, err := s.messages.ListByCommunity(ctx, id)
	if err != nil {
		s.log.Error("list_community_messages_failed", "community_id", id, "error", err)
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to fetch messages")
		return
	}

	if body, err := json.Marshal(messages); err == nil {
		if err := s.redis.Set(ctx, cacheKey, body, messageCacheTTL); err != nil {
			s.log.Warn("message_cache_set_failed", "error", err)
		}
	}

	c.JSON(http.StatusOK, messages)
}
