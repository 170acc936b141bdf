package presence

import (
	"sort"
	"sync"
	"time"
)

// Registry tracks which users are online, across possibly several concurrent
// connections per user, and when offline users were last seen. State lives
// only in this process; it is created empty at startup and lost on restart.
//
// Forward map: userID → set of connection ids.
// Reverse map: connection id → userID, so Unregister never scans.
// A user is in conns iff its set is non-empty, and never in both conns and
// lastSeen at the same time.
type Registry struct {
	mu       sync.Mutex
	conns    map[int64]map[string]struct{}
	owner    map[string]int64
	lastSeen map[int64]time.Time

	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[int64]map[string]struct{}),
		owner:    make(map[string]int64),
		lastSeen: make(map[int64]time.Time),
		now:      time.Now,
	}
}

// Register binds connID to userID and clears any last-seen entry for that
// user. Registering the same pair twice is a no-op. A connection that was
// previously bound to a different user is rebound: the old binding is
// released first, exactly as if the connection had disconnected.
func (r *Registry) Register(userID int64, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owner[connID]; ok {
		if prev == userID {
			return
		}
		r.releaseLocked(prev, connID)
	}

	set := r.conns[userID]
	if set == nil {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}
	r.owner[connID] = userID
	delete(r.lastSeen, userID)
}

// Unregister removes connID from its owning user. When the user's last
// connection goes away the user is marked offline with a last-seen timestamp.
// Unknown connection ids are ignored (a disconnect can arrive before any
// identify event).
func (r *Registry) Unregister(connID string) (userID int64, found, wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, found = r.owner[connID]
	if !found {
		return 0, false, false
	}
	wentOffline = r.releaseLocked(userID, connID)
	return userID, true, wentOffline
}

// releaseLocked drops one connection binding. Caller holds r.mu.
func (r *Registry) releaseLocked(userID int64, connID string) (wentOffline bool) {
	delete(r.owner, connID)
	set := r.conns[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
		r.lastSeen[userID] = r.now()
		return true
	}
	return false
}

// UserFor returns the user a connection is currently bound to.
func (r *Registry) UserFor(connID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, ok := r.owner[connID]
	return uid, ok
}

// Online reports whether userID has at least one open connection.
func (r *Registry) Online(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[userID]) > 0
}

// Snapshot returns the online user ids (sorted, for stable payloads) and a
// copy of the last-seen map keyed by user id, in unix milliseconds. The two
// views are taken under one lock acquisition so they can never disagree.
func (r *Registry) Snapshot() (online []int64, lastSeen map[int64]int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	online = make([]int64, 0, len(r.conns))
	for uid := range r.conns {
		online = append(online, uid)
	}
	sort.Slice(online, func(i, j int) bool { return online[i] < online[j] })

	lastSeen = make(map[int64]int64, len(r.lastSeen))
	for uid, ts := range r.lastSeen {
		lastSeen[uid] = ts.UnixMilli()
	}
	return online, lastSeen
}
