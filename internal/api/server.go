package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"communityhub/internal/config"
	"communityhub/internal/db"
	"communityhub/internal/presence"
	"communityhub/internal/realtime"
	"communityhub/internal/redis"
	"communityhub/internal/security"
	"communityhub/internal/storage"
	"communityhub/internal/store"
)

type Server struct {
	log       *slog.Logger
	db        *db.DB
	redis     *redis.Client
	cfg       config.Config
	router    *gin.Engine
	tokens    *security.TokenManager
	storage   storage.Client
	messages  *store.Messages
	hub       *realtime.Hub
	registry  *presence.Registry
	gateway   *realtime.Gateway
	wsLimiter *security.LimiterStore
}

func NewServer(
	log *slog.Logger,
	dbConn *db.DB,
	redisClient *redis.Client,
	cfg config.Config,
	tokens *security.TokenManager,
	storageClient storage.Client,
	messages *store.Messages,
	hub *realtime.Hub,
	registry *presence.Registry,
	gateway *realtime.Gateway,
) *Server {
	s := &Server{
		log:       log,
		db:        dbConn,
		redis:     redisClient,
		cfg:       cfg,
		router:    gin.New(),
		tokens:    tokens,
		storage:   storageClient,
		messages:  messages,
		hub:       hub,
		registry:  registry,
		gateway:   gateway,
		wsLimiter: security.NewLimiterStore(rate.Limit(cfg.WSConnectRate), cfg.WSConnectBurst, 10*time.Minute),
	}

	gin.SetMode(gin.ReleaseMode)
	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())
	r.Use(s.loggingMiddleware())
	r.Use(s.rateLimitMiddleware())

	r.GET("/ws", s.serveWS)

	api := r.Group("/api")
	{
		api.GET("/", func(c *gin.Context) {
			c.String(http.StatusOK, "API is running...")
		})
		api.GET("/health", s.health)
		api.POST("/login", s.login)
		api.POST("/users", s.createUser)

		authed := api.Group("")
		authed.Use(s.authMiddleware())
		{
			authed.GET("/online", s.getOnlineUsers)

			authed.GET("/users", s.getUsers)
			authed.GET("/users/:id", s.getUserByID)
			authed.PUT("/users/:id", s.updateUser)
			authed.DELETE("/users/:id", s.deleteUser)

			authed.GET("/communities", s.getCommunities)
			authed.POST("/communities", s.createCommunity)
			authed.GET("/communities/:id", s.getCommunityByID)
			authed.PUT("/communities/:id", s.requireAdmin(), s.updateCommunity)
			authed.DELETE("/communities/:id", s.requireAdmin(), s.deleteCommunity)
			authed.PUT("/communities/:id/settings", s.requireAdmin(), s.updateCommunitySettings)
			authed.PUT("/communities/:id/pinboard", s.requireAdmin(), s.updateCommunityPinBoard)

			authed.GET("/communities/:id/members", s.requireMembership(), s.getCommunityMembers)
			authed.POST("/communities/:id/members", s.joinCommunity)
			authed.DELETE("/communities/:id/members/:userId", s.leaveCommunity)
			authed.PUT("/communities/:id/members/:userId/role", s.requireAdmin(), s.updateMemberRole)

			authed.GET("/communities/:id/messages", s.requireMembership(), s.getCommunityMessages)
			authed.GET("/communities/:id/posts", s.requireMembership(), s.getCommunityPosts)
			authed.GET("/communities/:id/events", s.requireMembership(), s.getCommunityEvents)
			authed.GET("/communities/:id/lists", s.requireMembership(), s.getCommunityLists)

			authed.GET("/messages", s.getMessages)
			authed.GET("/messages/:id", s.getMessageByID)
			authed.GET("/messages/:id/reactions", s.getMessageReactions)
			authed.POST("/messages/:id/reactions", s.addMessageReaction)
			authed.DELETE("/messages/:id/reactions/:emoji", s.removeMessageReaction)

			authed.GET("/posts", s.getPosts)
			authed.POST("/posts", s.createPost)
			authed.GET("/posts/:id", s.getPostByID)
			authed.PUT("/posts/:id", s.updatePost)
			authed.DELETE("/posts/:id", s.deletePost)
			authed.GET("/posts/:id/comments", s.getPostComments)
			authed.POST("/posts/:id/comments", s.createComment)

			authed.GET("/comments/:id", s.getCommentByID)
			authed.PUT("/comments/:id", s.updateComment)
			authed.DELETE("/comments/:id", s.deleteComment)

			authed.GET("/events", s.getEvents)
			authed.POST("/events", s.createEvent)
			authed.GET("/events/:id", s.getEventByID)
			authed.PUT("/events/:id", s.updateEvent)
			authed.DELETE("/events/:id", s.deleteEvent)
			authed.GET("/events/:id/attendees", s.getEventAttendees)
			authed.POST("/events/:id/attendees", s.addEventAttendee)
			authed.DELETE("/events/:id/attendees/:userId", s.removeEventAttendee)

			authed.GET("/lists", s.getLists)
			authed.POST("/lists", s.createList)
			authed.GET("/lists/:id", s.getListByID)
			authed.PUT("/lists/:id", s.updateList)
			authed.DELETE("/lists/:id", s.deleteList)
			authed.GET("/lists/:id/items", s.getListItems)
			authed.POST("/lists/:id/items", s.createListItem)
			authed.PUT("/listitems/:id", s.updateListItem)
			authed.DELETE("/listitems/:id", s.deleteListItem)

			authed.POST("/uploads/profile-picture", s.uploadProfilePicture)
		}
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	dbStatus := "connected"
	if err := s.db.Pool.Ping(ctx); err != nil {
		dbStatus = "unreachable"
	}

	redisStatus := "connected"
	if err := s.redis.RDB().Ping(ctx).Err(); err != nil {
		redisStatus = "unreachable"
	}

	status := http.StatusOK
	overall := "healthy"
	if dbStatus != "connected" || redisStatus != "connected" {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":      overall,
		"database":    dbStatus,
		"redis":       redisStatus,
		"connections": s.hub.Count(),
	})
}

func (s *Server) getOnlineUsers(c *gin.Context) {
	online, lastSeen := s.registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"userIds":  online,
		"lastSeen": lastSeen,
	})
}

func errJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}
