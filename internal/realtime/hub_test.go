package realtime

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	h := newTestHub()

	conns := []*mockConn{{id: "a"}, {id: "b"}, {id: "c"}}
	for _, c := range conns {
		h.Register(c)
	}

	h.Broadcast("ping", map[string]int{"n": 1})

	for _, c := range conns {
		frames := c.received(t, "ping")
		require.Len(t, frames, 1, "conn %s", c.id)
	}
}

func TestHub_BroadcastExceptSkipsNamedConnection(t *testing.T) {
	h := newTestHub()

	a := &mockConn{id: "a"}
	b := &mockConn{id: "b"}
	h.Register(a)
	h.Register(b)

	h.BroadcastExcept("a", "ping", nil)

	assert.Empty(t, a.received(t, "ping"))
	assert.Len(t, b.received(t, "ping"), 1)
}

func TestHub_SendIsUnicast(t *testing.T) {
	h := newTestHub()

	a := &mockConn{id: "a"}
	b := &mockConn{id: "b"}
	h.Register(a)
	h.Register(b)

	h.Send("a", "ack", ErrorPayload{Code: "x"})

	require.Len(t, a.received(t, "ack"), 1)
	assert.Empty(t, b.received(t, "ack"))

	// unknown target is a no-op
	h.Send("missing", "ack", nil)
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	h := newTestHub()

	a := &mockConn{id: "a"}
	h.Register(a)
	assert.Equal(t, 1, h.Count())

	h.Unregister("a")
	assert.Equal(t, 0, h.Count())

	h.Broadcast("ping", nil)
	assert.Empty(t, a.received(t, "ping"))
}

func TestHub_DeadConnectionDoesNotBlockFanout(t *testing.T) {
	h := newTestHub()

	dead := &mockConn{id: "dead", sendErr: errors.New("buffer full")}
	live := &mockConn{id: "live"}
	h.Register(dead)
	h.Register(live)

	h.Broadcast("ping", nil)

	frames := live.received(t, "ping")
	require.Len(t, frames, 1, "a failing peer must not affect delivery to others")
}

func TestHub_EnvelopeShape(t *testing.T) {
	h := newTestHub()

	a := &mockConn{id: "a"}
	h.Register(a)

	h.Broadcast("update_online_users", PresencePayload{UserIDs: []int64{1}, LastSeen: map[int64]int64{2: 1700000000000}})

	a.mu.Lock()
	raw := a.frames[0]
	a.mu.Unlock()

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "update_online_users", env.Event)

	var p struct {
		UserIDs  []int64          `json:"userIds"`
		LastSeen map[string]int64 `json:"lastSeen"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, []int64{1}, p.UserIDs)
	assert.Equal(t, int64(1700000000000), p.LastSeen["2"], "lastSeen keys are stringified user ids on the wire")
}
