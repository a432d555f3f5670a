package engine

import "sync"

// LockManager provides non-blocking mutual exclusion keyed by channel, or by
// channel+bot when several bot identities share one credential set (swarm
// mode). Lock/Unlock/IsLocked never block and never suspend: a caller that
// finds a channel locked must skip the event, not wait.
//
// Locks are not reentrant and not owned; the caller must guarantee release
// on every exit path. Prefer TryAcquire, whose release closure makes that
// guarantee trivial with defer.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]struct{}
}

// NewLockManager creates an empty lock manager.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]struct{})}
}

func lockKey(channelID, botID string) string {
	if botID == "" {
		return channelID
	}
	return channelID + ":" + botID
}

// IsLocked reports whether the (channel, bot) key is currently held.
func (m *LockManager) IsLocked(channelID, botID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[lockKey(channelID, botID)]
	return held
}

// Lock marks the key as held. Calling Lock on an already-held key is a
// caller bug; the manager stays a plain map mutation either way.
func (m *LockManager) Lock(channelID, botID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[lockKey(channelID, botID)] = struct{}{}
}

// Unlock releases the key.
func (m *LockManager) Unlock(channelID, botID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, lockKey(channelID, botID))
}

// TryAcquire atomically checks and takes the lock. On success it returns a
// release closure that is safe to call exactly once, typically via defer; on
// contention it returns ok=false and the caller skips the event. A leaked
// lock starves the channel permanently, so every acquisition must pair with
// a deferred release.
func (m *LockManager) TryAcquire(channelID, botID string) (release func(), ok bool) {
	key := lockKey(channelID, botID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[key]; held {
		return nil, false
	}
	m.locks[key] = struct{}{}
	return func() {
		m.mu.Lock()
		delete(m.locks, key)
		m.mu.Unlock()
	}, true
}
