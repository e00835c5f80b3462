package realtime

import (
	"hash/fnv"
	"sync"
	"time"
)

// DefaultGracePeriod is how long a user keeps their online status after the
// last socket closes, to tolerate brief reconnects such as a tab refresh.
const DefaultGracePeriod = 15 * time.Second

const presenceShardCount = 32

// PresenceRegistry tracks which users have at least one open connection.
// Online/offline are derived, never stored: a user is online iff their
// connection set is non-empty or an offline grace timer is still pending.
//
// Mutations are serialized per user through sharded locks keyed by user id,
// so unrelated users' connect/disconnect traffic never contends on a single
// global lock. State is in-memory only and rebuilt from scratch on restart.
type PresenceRegistry struct {
	grace     time.Duration
	onOnline  func(userID string)
	onOffline func(userID string)
	shards    [presenceShardCount]presenceShard
}

type presenceShard struct {
	mu sync.Mutex
	// emitMu serializes transition callbacks. It is acquired while mu is
	// still held, so callbacks fire in the order the transitions were
	// decided: a reconnect racing a fired grace timer cannot announce
	// userOnline before the in-flight userOffline lands.
	emitMu sync.Mutex
	users  map[string]*presenceEntry
}

type presenceEntry struct {
	conns map[string]struct{}
	// epoch invalidates a pending offline timer: the timer captures the
	// epoch at scheduling time and only fires if it is still current.
	epoch        uint64
	timerPending bool
}

// NewPresenceRegistry builds a registry emitting transitions through the given
// callbacks. grace <= 0 falls back to DefaultGracePeriod. Callbacks are
// invoked outside the state lock but under a per-shard emission lock, so they
// must be fast and must not call back into the registry.
func NewPresenceRegistry(grace time.Duration, onOnline, onOffline func(userID string)) *PresenceRegistry {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	r := &PresenceRegistry{grace: grace, onOnline: onOnline, onOffline: onOffline}
	for i := range r.shards {
		r.shards[i].users = make(map[string]*presenceEntry)
	}
	return r
}

// RegisterConnection adds connectionID to the user's connection set.
// The first connection of a truly-offline user emits userOnline exactly once.
// A reconnect inside the grace window cancels the pending offline transition
// and emits nothing: the user never appeared offline.
func (r *PresenceRegistry) RegisterConnection(userID string, connectionID string) {
	s := r.shard(userID)
	s.mu.Lock()
	e := s.users[userID]
	if e == nil {
		e = &presenceEntry{conns: make(map[string]struct{})}
		s.users[userID] = e
	}
	cameOnline := len(e.conns) == 0 && !e.timerPending
	if e.timerPending {
		// Reconnected within the grace window; invalidate the timer.
		e.epoch++
		e.timerPending = false
	}
	e.conns[connectionID] = struct{}{}
	if cameOnline {
		s.emitMu.Lock()
	}
	s.mu.Unlock()

	if cameOnline {
		if r.onOnline != nil {
			r.onOnline(userID)
		}
		s.emitMu.Unlock()
	}
}

// UnregisterConnection removes connectionID from the user's set. When the set
// becomes empty the offline transition is deferred by the grace period; the
// timer re-checks the set on expiry and silently expires if the user has
// reconnected in the meantime.
func (r *PresenceRegistry) UnregisterConnection(userID string, connectionID string) {
	s := r.shard(userID)
	s.mu.Lock()
	e := s.users[userID]
	if e == nil {
		s.mu.Unlock()
		return
	}
	delete(e.conns, connectionID)
	if len(e.conns) > 0 {
		s.mu.Unlock()
		return
	}

	e.epoch++
	e.timerPending = true
	epoch := e.epoch
	s.mu.Unlock()

	time.AfterFunc(r.grace, func() {
		r.expireOffline(userID, epoch)
	})
}

func (r *PresenceRegistry) expireOffline(userID string, epoch uint64) {
	s := r.shard(userID)
	s.mu.Lock()
	e := s.users[userID]
	if e == nil || e.epoch != epoch || len(e.conns) > 0 {
		// Reconnected (or a newer disconnect cycle owns the timer); expire silently.
		s.mu.Unlock()
		return
	}
	delete(s.users, userID)
	s.emitMu.Lock()
	s.mu.Unlock()

	if r.onOffline != nil {
		r.onOffline(userID)
	}
	s.emitMu.Unlock()
}

// IsOnline reports whether the user currently counts as online, including the
// grace window after their last socket closed.
func (r *PresenceRegistry) IsOnline(userID string) bool {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.users[userID]
	return e != nil && (len(e.conns) > 0 || e.timerPending)
}

// Connections returns the number of open connections for the user.
func (r *PresenceRegistry) Connections(userID string) int {
	s := r.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.users[userID]
	if e == nil {
		return 0
	}
	return len(e.conns)
}

func (r *PresenceRegistry) shard(userID string) *presenceShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &r.shards[h.Sum32()%presenceShardCount]
}
