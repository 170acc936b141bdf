package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"communityhub/internal/models"
	"communityhub/internal/presence"
)

const persistTimeout = 10 * time.Second

// MessageCreator is the slice of the persistence layer the gateway needs:
// store one chat message and get back its durable representation.
type MessageCreator interface {
	Create(ctx context.Context, userID int64, content string, communityID *int64) (models.Message, error)
}

// Gateway wires the inbound socket events to the presence registry and the
// message store. One instance serves all connections; per-connection
// ordering comes from the read pump dispatching events inline.
type Gateway struct {
	log      *slog.Logger
	hub      *Hub
	registry *presence.Registry
	messages MessageCreator
}

func NewGateway(log *slog.Logger, hub *Hub, registry *presence.Registry, messages MessageCreator) *Gateway {
	return &Gateway{
		log:      log,
		hub:      hub,
		registry: registry,
		messages: messages,
	}
}

// HandleConnect adds the connection to the hub. No presence state changes
// until the client identifies itself.
func (g *Gateway) HandleConnect(s Sender) {
	g.hub.Register(s)
}

// HandleDisconnect removes the connection from the hub and, if it was bound
// to a user, updates presence and broadcasts the new snapshot.
func (g *Gateway) HandleDisconnect(s Sender) {
	g.hub.Unregister(s.ID())

	userID, found, wentOffline := g.registry.Unregister(s.ID())
	if !found {
		// disconnect before any identify event
		return
	}

	if wentOffline {
		g.log.Info("user_offline", "user_id", userID, "conn_id", s.ID())
	} else {
		g.log.Debug("connection_closed", "user_id", userID, "conn_id", s.ID())
	}

	g.broadcastPresence()
}

// HandleEvent decodes one inbound frame and dispatches it. A bad frame from
// one client must never take down the handler for the others, so every
// rejection is an ack or a log line, never a panic or process exit.
func (g *Gateway) HandleEvent(s Sender, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.reject(s, "invalid_frame", "frame must be a JSON envelope with event and data")
		return
	}

	switch env.Event {
	case EventUserConnected:
		g.handleIdentify(s, env.Data)
	case EventSendMessage:
		g.handleSendMessage(s, env.Data)
	case EventUserTyping:
		g.handleTyping(s, env.Data)
	default:
		g.log.Debug("unknown_event", "event", env.Event, "conn_id", s.ID())
	}
}

func (g *Gateway) handleIdentify(s Sender, data []byte) {
	var p IdentifyPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ID <= 0 {
		g.reject(s, "invalid_payload", "user_connected requires a positive id")
		return
	}

	g.registry.Register(p.ID, s.ID())
	g.log.Info("user_identified", "user_id", p.ID, "conn_id", s.ID())

	g.broadcastPresence()
}

func (g *Gateway) handleSendMessage(s Sender, data []byte) {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID <= 0 || strings.TrimSpace(p.Content) == "" {
		g.reject(s, "invalid_payload", "send_message requires user_id and content")
		return
	}

	if _, identified := g.registry.UserFor(s.ID()); !identified {
		g.log.Debug("message_from_unidentified_connection", "conn_id", s.ID())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	// the message must be durable, with its id and timestamp assigned,
	// before anyone sees it
	msg, err := g.messages.Create(ctx, p.UserID, p.Content, p.CommunityID)
	if err != nil {
		g.log.Error("message_persist_failed", "user_id", p.UserID, "error", err)
		g.reject(s, "message_not_saved", "message could not be saved")
		return
	}

	// merge the client-supplied denormalized author onto the stored fields
	msg.User = p.User

	g.hub.Broadcast(EventReceiveMessage, msg)
}

func (g *Gateway) handleTyping(s Sender, data []byte) {
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID <= 0 {
		g.reject(s, "invalid_payload", "user_typing requires user_id")
		return
	}

	if _, identified := g.registry.UserFor(s.ID()); !identified {
		return
	}

	g.hub.BroadcastExcept(s.ID(), EventDisplayTyping, TypingBroadcast{
		UserID:      p.UserID,
		CommunityID: p.CommunityID,
		Username:    p.Username,
	})
}

func (g *Gateway) broadcastPresence() {
	online, lastSeen := g.registry.Snapshot()
	g.hub.Broadcast(EventUpdateOnlineUsers, PresencePayload{
		UserIDs:  online,
		LastSeen: lastSeen,
	})
}

func (g *Gateway) reject(s Sender, code, message string) {
	g.hub.Send(s.ID(), EventError, ErrorPayload{Code: code, Message: message})
}
