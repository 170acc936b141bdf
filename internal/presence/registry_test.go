package presence

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_MultipleConnectionsPerUser(t *testing.T) {
	r := NewRegistry()

	r.Register(7, "c1")
	r.Register(7, "c2")

	online, lastSeen := r.Snapshot()
	assert.Equal(t, []int64{7}, online)
	assert.Empty(t, lastSeen)

	_, found, wentOffline := r.Unregister("c1")
	assert.True(t, found)
	assert.False(t, wentOffline, "user still has c2")
	assert.True(t, r.Online(7))

	uid, found, wentOffline := r.Unregister("c2")
	assert.True(t, found)
	assert.True(t, wentOffline)
	assert.Equal(t, int64(7), uid)

	online, lastSeen = r.Snapshot()
	assert.Empty(t, online)
	assert.Contains(t, lastSeen, int64(7))
}

func TestRegistry_UnknownConnectionIsNoop(t *testing.T) {
	r := NewRegistry()

	_, found, wentOffline := r.Unregister("never-registered")
	assert.False(t, found)
	assert.False(t, wentOffline)

	online, lastSeen := r.Snapshot()
	assert.Empty(t, online)
	assert.Empty(t, lastSeen)
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register(1, "c1")
	r.Register(1, "c1")

	_, found, wentOffline := r.Unregister("c1")
	assert.True(t, found)
	assert.True(t, wentOffline, "duplicate register must not leave a phantom connection")
}

func TestRegistry_ReconnectClearsLastSeen(t *testing.T) {
	r := NewRegistry()

	r.Register(1, "c1")
	r.Unregister("c1")

	_, lastSeen := r.Snapshot()
	require.Contains(t, lastSeen, int64(1))

	r.Register(1, "c2")

	online, lastSeen := r.Snapshot()
	assert.Equal(t, []int64{1}, online)
	assert.NotContains(t, lastSeen, int64(1), "online and last-seen are mutually exclusive")
}

func TestRegistry_LastSeenTimestamp(t *testing.T) {
	r := NewRegistry()
	at := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return at }

	r.Register(5, "c1")
	r.Unregister("c1")

	_, lastSeen := r.Snapshot()
	assert.Equal(t, at.UnixMilli(), lastSeen[5])
}

func TestRegistry_RebindReleasesPreviousUser(t *testing.T) {
	r := NewRegistry()

	r.Register(1, "c1")
	r.Register(2, "c1")

	online, lastSeen := r.Snapshot()
	assert.Equal(t, []int64{2}, online)
	assert.Contains(t, lastSeen, int64(1), "old binding is released like a disconnect")
}

func TestRegistry_SnapshotExclusivityUnderHistory(t *testing.T) {
	// exercise a mixed connect/disconnect history and assert the invariant
	// after every step: a user is online iff it has connections, and never
	// in both views.
	type step struct {
		register bool
		userID   int64
		connID   string
	}
	steps := []step{
		{true, 1, "a"},
		{true, 1, "b"},
		{true, 2, "c"},
		{false, 0, "a"},
		{true, 3, "d"},
		{false, 0, "c"},
		{false, 0, "b"},
		{false, 0, "z"}, // never registered
		{true, 2, "e"},
	}

	r := NewRegistry()
	for i, s := range steps {
		if s.register {
			r.Register(s.userID, s.connID)
		} else {
			r.Unregister(s.connID)
		}

		online, lastSeen := r.Snapshot()
		for _, uid := range online {
			_, both := lastSeen[uid]
			assert.False(t, both, "step %d: user %d in both online and lastSeen", i, uid)
		}
	}

	online, lastSeen := r.Snapshot()
	assert.Equal(t, []int64{2, 3}, online)
	assert.Contains(t, lastSeen, int64(1))
	assert.NotContains(t, lastSeen, int64(2))
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := NewRegistry()

	const users = 8
	const connsPerUser = 25

	var wg sync.WaitGroup
	for u := int64(1); u <= users; u++ {
		for c := 0; c < connsPerUser; c++ {
			wg.Add(1)
			go func(uid int64, n int) {
				defer wg.Done()
				connID := fmt.Sprintf("%d-%d", uid, n)
				r.Register(uid, connID)
				r.Unregister(connID)
			}(u, c)
		}
	}
	wg.Wait()

	// every register was paired with an unregister, so nobody is online and
	// everyone has a last-seen entry
	online, lastSeen := r.Snapshot()
	assert.Empty(t, online)
	assert.Len(t, lastSeen, users)
}
