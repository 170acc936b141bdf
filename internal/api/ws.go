package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"communityhub/internal/realtime"
	"communityhub/internal/security"
)

func (s *Server) upgrader() websocket.Upgrader {
	allowed := make(map[string]struct{}, len(s.cfg.CORSOrigins))
	for _, o := range s.cfg.CORSOrigins {
		allowed[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// non-browser clients
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

func (s *Server) serveWS(c *gin.Context) {
	ip := security.ClientIPFromRequest(c.Request)
	if !s.wsLimiter.Allow(ip) {
		errJSON(c, http.StatusTooManyRequests, "rate_limited", "too many connection attempts")
		return
	}

	up := s.upgrader()
	ws, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		s.log.Warn("ws_upgrade_failed", "ip", ip, "error", err)
		return
	}

	conn := realtime.NewConn(uuid.NewString(), ws, s.gateway, s.log, s.cfg.WSMaxPayloadBytes)
	conn.Start()
}
