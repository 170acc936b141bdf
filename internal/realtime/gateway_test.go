package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communityhub/internal/models"
	"communityhub/internal/presence"
)

type mockConn struct {
	id      string
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.frames = append(m.frames, data)
	return nil
}

// received decodes every frame of the given event type delivered so far.
func (m *mockConn) received(t *testing.T, event string) []json.RawMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []json.RawMessage
	for _, f := range m.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		if env.Event == event {
			out = append(out, env.Data)
		}
	}
	return out
}

type fakeMessages struct {
	mu      sync.Mutex
	err     error
	nextID  int64
	created []models.Message
}

func (f *fakeMessages) Create(_ context.Context, userID int64, content string, communityID *int64) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Message{}, f.err
	}
	f.nextID++
	msg := models.Message{
		ID:          f.nextID,
		UserID:      userID,
		CommunityID: communityID,
		Content:     content,
		CreatedAt:   time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC),
	}
	f.created = append(f.created, msg)
	return msg, nil
}

func (f *fakeMessages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func newTestGateway(store MessageCreator) *Gateway {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGateway(log, NewHub(log), presence.NewRegistry(), store)
}

func identify(t *testing.T, g *Gateway, s Sender, userID int64) {
	t.Helper()
	g.HandleEvent(s, []byte(`{"event":"user_connected","data":{"id":`+jsonInt(userID)+`}}`))
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestGateway_IdentifyBroadcastsPresence(t *testing.T) {
	g := newTestGateway(&fakeMessages{})

	c1 := &mockConn{id: "c1"}
	c2 := &mockConn{id: "c2"}
	g.HandleConnect(c1)
	g.HandleConnect(c2)

	identify(t, g, c1, 42)

	// presence update goes to every connected client, not just the caller
	for _, c := range []*mockConn{c1, c2} {
		updates := c.received(t, EventUpdateOnlineUsers)
		require.Len(t, updates, 1, "conn %s", c.id)

		var p PresencePayload
		require.NoError(t, json.Unmarshal(updates[0], &p))
		assert.Equal(t, []int64{42}, p.UserIDs)
		assert.Empty(t, p.LastSeen)
	}
}

func TestGateway_SendMessagePersistsThenBroadcasts(t *testing.T) {
	store := &fakeMessages{}
	g := newTestGateway(store)

	sender := &mockConn{id: "c1"}
	other := &mockConn{id: "c2"}
	g.HandleConnect(sender)
	g.HandleConnect(other)
	identify(t, g, sender, 42)

	g.HandleEvent(sender, []byte(`{"event":"send_message","data":{"user_id":42,"content":"hi","community_id":7,"user":{"id":42,"username":"alice"}}}`))

	assert.Equal(t, 1, store.count())

	for _, c := range []*mockConn{sender, other} {
		msgs := c.received(t, EventReceiveMessage)
		require.Len(t, msgs, 1, "conn %s must see the message exactly once", c.id)

		var msg models.Message
		require.NoError(t, json.Unmarshal(msgs[0], &msg))
		assert.Equal(t, int64(42), msg.UserID)
		assert.Equal(t, "hi", msg.Content)
		require.NotNil(t, msg.CommunityID)
		assert.Equal(t, int64(7), *msg.CommunityID)
		assert.Positive(t, msg.ID, "id is server-assigned")
		assert.False(t, msg.CreatedAt.IsZero(), "timestamp is server-assigned")
		require.NotNil(t, msg.User, "denormalized author is merged onto stored fields")
		assert.Equal(t, "alice", msg.User.Username)
	}
}

func TestGateway_PersistFailureAcksSenderAndSkipsBroadcast(t *testing.T) {
	store := &fakeMessages{err: errors.New("store unavailable")}
	g := newTestGateway(store)

	sender := &mockConn{id: "c1"}
	other := &mockConn{id: "c2"}
	g.HandleConnect(sender)
	g.HandleConnect(other)
	identify(t, g, sender, 42)

	g.HandleEvent(sender, []byte(`{"event":"send_message","data":{"user_id":42,"content":"hi"}}`))

	assert.Empty(t, other.received(t, EventReceiveMessage), "nothing may be broadcast when persistence fails")
	assert.Empty(t, sender.received(t, EventReceiveMessage))

	acks := sender.received(t, EventError)
	require.Len(t, acks, 1)
	var ack ErrorPayload
	require.NoError(t, json.Unmarshal(acks[0], &ack))
	assert.Equal(t, "message_not_saved", ack.Code)

	assert.Empty(t, other.received(t, EventError), "error ack is unicast to the originator")
}

func TestGateway_TypingExcludesSender(t *testing.T) {
	g := newTestGateway(&fakeMessages{})

	sender := &mockConn{id: "c1"}
	other := &mockConn{id: "c2"}
	third := &mockConn{id: "c3"}
	g.HandleConnect(sender)
	g.HandleConnect(other)
	g.HandleConnect(third)
	identify(t, g, sender, 1)

	g.HandleEvent(sender, []byte(`{"event":"user_typing","data":{"user_id":1,"username":"alice","community_id":3}}`))

	assert.Empty(t, sender.received(t, EventDisplayTyping), "typing is never echoed to the sender")

	for _, c := range []*mockConn{other, third} {
		frames := c.received(t, EventDisplayTyping)
		require.Len(t, frames, 1, "conn %s", c.id)

		var p TypingBroadcast
		require.NoError(t, json.Unmarshal(frames[0], &p))
		assert.Equal(t, int64(1), p.UserID)
		assert.Equal(t, "alice", p.Username)
		require.NotNil(t, p.CommunityID)
		assert.Equal(t, int64(3), *p.CommunityID)
	}
}

func TestGateway_MultiConnectionDisconnectScenario(t *testing.T) {
	g := newTestGateway(&fakeMessages{})

	c1 := &mockConn{id: "c1"}
	c2 := &mockConn{id: "c2"}
	c3 := &mockConn{id: "c3"}
	g.HandleConnect(c1)
	g.HandleConnect(c2)
	g.HandleConnect(c3)

	identify(t, g, c1, 10) // user u, first device
	identify(t, g, c2, 10) // user u, second device
	identify(t, g, c3, 20) // user v

	// closing one of u's two connections leaves u online
	g.HandleDisconnect(c1)

	updates := c3.received(t, EventUpdateOnlineUsers)
	require.NotEmpty(t, updates)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(updates[len(updates)-1], &p))
	assert.Equal(t, []int64{10, 20}, p.UserIDs, "u stays online while c2 is open")
	assert.Empty(t, p.LastSeen)

	// closing the last connection takes u offline with a last-seen stamp
	g.HandleDisconnect(c2)

	updates = c3.received(t, EventUpdateOnlineUsers)
	require.NotEmpty(t, updates)
	require.NoError(t, json.Unmarshal(updates[len(updates)-1], &p))
	assert.Equal(t, []int64{20}, p.UserIDs)
	assert.Contains(t, p.LastSeen, int64(10))
}

func TestGateway_DisconnectBeforeIdentify(t *testing.T) {
	g := newTestGateway(&fakeMessages{})

	c1 := &mockConn{id: "c1"}
	witness := &mockConn{id: "c2"}
	g.HandleConnect(c1)
	g.HandleConnect(witness)

	g.HandleDisconnect(c1)

	assert.Empty(t, witness.received(t, EventUpdateOnlineUsers), "no presence change for an unidentified connection")
}

func TestGateway_UnidentifiedSenderIsIgnored(t *testing.T) {
	store := &fakeMessages{}
	g := newTestGateway(store)

	c1 := &mockConn{id: "c1"}
	g.HandleConnect(c1)

	g.HandleEvent(c1, []byte(`{"event":"send_message","data":{"user_id":42,"content":"hi"}}`))
	g.HandleEvent(c1, []byte(`{"event":"user_typing","data":{"user_id":42,"username":"x"}}`))

	assert.Zero(t, store.count(), "messages from unidentified connections are not persisted")
	assert.Empty(t, c1.received(t, EventReceiveMessage))
}

func TestGateway_MalformedPayloads(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		code  string
	}{
		{"not json", `garbage`, "invalid_frame"},
		{"identify without id", `{"event":"user_connected","data":{}}`, "invalid_payload"},
		{"identify negative id", `{"event":"user_connected","data":{"id":-3}}`, "invalid_payload"},
		{"message without content", `{"event":"send_message","data":{"user_id":1,"content":"  "}}`, "invalid_payload"},
		{"message without user", `{"event":"send_message","data":{"content":"hi"}}`, "invalid_payload"},
		{"typing without user", `{"event":"user_typing","data":{"username":"x"}}`, "invalid_payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeMessages{}
			g := newTestGateway(store)

			c1 := &mockConn{id: "c1"}
			g.HandleConnect(c1)

			g.HandleEvent(c1, []byte(tt.frame))

			acks := c1.received(t, EventError)
			require.Len(t, acks, 1)
			var ack ErrorPayload
			require.NoError(t, json.Unmarshal(acks[0], &ack))
			assert.Equal(t, tt.code, ack.Code)

			assert.Zero(t, store.count())
			assert.Empty(t, c1.received(t, EventUpdateOnlineUsers))
		})
	}
}

func TestGateway_ReidentifyRebindsConnection(t *testing.T) {
	g := newTestGateway(&fakeMessages{})

	c1 := &mockConn{id: "c1"}
	g.HandleConnect(c1)

	identify(t, g, c1, 1)
	identify(t, g, c1, 2)

	updates := c1.received(t, EventUpdateOnlineUsers)
	require.Len(t, updates, 2)

	var p PresencePayload
	require.NoError(t, json.Unmarshal(updates[1], &p))
	assert.Equal(t, []int64{2}, p.UserIDs, "a connection belongs to one user at a time")
	assert.Contains(t, p.LastSeen, int64(1))
}
