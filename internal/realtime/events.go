package realtime

import (
	"encoding/json"

	"communityhub/internal/models"
)

// Wire-level event names. These are the contract with the frontend client;
// renaming one breaks deployed clients.
const (
	// inbound
	EventUserConnected = "user_connected"
	EventSendMessage   = "send_message"
	EventUserTyping    = "user_typing"

	// outbound
	EventUpdateOnlineUsers = "update_online_users"
	EventReceiveMessage    = "receive_message"
	EventDisplayTyping     = "display_typing"
	EventError             = "error"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// IdentifyPayload binds the connection to a registered user. The id is
// trusted as handed over; token verification happened at upgrade time.
type IdentifyPayload struct {
	ID int64 `json:"id"`
}

type SendMessagePayload struct {
	UserID      int64              `json:"user_id"`
	Content     string             `json:"content"`
	CommunityID *int64             `json:"community_id,omitempty"`
	User        *models.PublicUser `json:"user,omitempty"`
}

type TypingPayload struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	CommunityID *int64 `json:"community_id,omitempty"`
}

// PresencePayload is the snapshot broadcast on every presence change.
// lastSeen is keyed by user id, values are unix milliseconds.
type PresencePayload struct {
	UserIDs  []int64         `json:"userIds"`
	LastSeen map[int64]int64 `json:"lastSeen"`
}

type TypingBroadcast struct {
	UserID      int64  `json:"userId"`
	CommunityID *int64 `json:"communityId,omitempty"`
	Username    string `json:"username"`
}

// ErrorPayload is unicast back to the originating connection when an
// inbound event cannot be honored.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
