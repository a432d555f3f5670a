package engine

import (
	"sync"
	"time"
)

type fatigueState struct {
	score      float64
	lastUpdate time.Time
}

// FatigueTracker models per-bot "busy-ness" independent of any channel.
// Each recorded send adds to the score (capped at the limit); the score
// decays linearly over time, applied lazily on every read or write rather
// than by a background timer. Entries that decay to zero are evicted.
type FatigueTracker struct {
	mu             sync.Mutex
	entries        map[string]*fatigueState
	limit          float64
	decayPerMinute float64
	now            func() time.Time
}

// NewFatigueTracker creates a tracker with the given cap and linear decay.
func NewFatigueTracker(limit, decayPerMinute float64) *FatigueTracker {
	if limit <= 0 {
		limit = 5.0
	}
	if decayPerMinute <= 0 {
		decayPerMinute = 0.5
	}
	return &FatigueTracker{
		entries:        make(map[string]*fatigueState),
		limit:          limit,
		decayPerMinute: decayPerMinute,
		now:            time.Now,
	}
}

// RecordActivity adds cost to the bot's score, capped at the limit.
func (t *FatigueTracker) RecordActivity(botID string, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	st, ok := t.entries[botID]
	if !ok {
		st = &fatigueState{lastUpdate: now}
		t.entries[botID] = st
	}
	t.decayLocked(botID, st, now)

	st.score += cost
	if st.score > t.limit {
		st.score = t.limit
	}
	st.lastUpdate = now
	// Decay may have evicted the entry; re-insert since it is live again.
	t.entries[botID] = st
}

// GetScore returns the bot's current fatigue score after applying decay.
func (t *FatigueTracker) GetScore(botID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.entries[botID]
	if !ok {
		return 0
	}
	now := t.now()
	t.decayLocked(botID, st, now)
	if _, ok := t.entries[botID]; !ok {
		return 0
	}
	st.lastUpdate = now
	return st.score
}

func (t *FatigueTracker) decayLocked(botID string, st *fatigueState, now time.Time) {
	minutes := now.Sub(st.lastUpdate).Minutes()
	if minutes <= 0 {
		return
	}
	st.score -= t.decayPerMinute * minutes
	if st.score <= 0 {
		st.score = 0
		delete(t.entries, botID)
	}
}
