package engine

import (
	"sync"
	"time"
)

type activityRecord struct {
	at      time.Time
	fromBot bool
}

// Density summarizes recent message volume in a channel.
type Density struct {
	UserCount int
	BotCount  int
	Total     int
}

// Modifier returns the 1/N dampening factor for the window: 1.0 for a single
// message, 0.2 for five.
func (d Density) Modifier() float64 {
	if d.Total <= 1 {
		return 1.0
	}
	return 1.0 / float64(d.Total)
}

// DensityTracker keeps sliding-window counters of inbound message volume and
// unique participants per channel. All state is in-memory and advisory; a
// restart resets it. Every write prunes the channel's window, so per-channel
// state stays bounded over the process lifetime. Safe for concurrent use.
type DensityTracker struct {
	mu           sync.Mutex
	records      map[string][]activityRecord
	lastSeen     map[string]map[string]time.Time // channel -> participant -> last seen
	lastActivity map[string]time.Time
	window       func() time.Duration
	now          func() time.Time
}

// NewDensityTracker creates an empty tracker. window is re-read on every
// write so config reloads take effect; nil means one minute.
func NewDensityTracker(window func() time.Duration) *DensityTracker {
	if window == nil {
		window = func() time.Duration { return time.Minute }
	}
	return &DensityTracker{
		records:      make(map[string][]activityRecord),
		lastSeen:     make(map[string]map[string]time.Time),
		lastActivity: make(map[string]time.Time),
		window:       window,
		now:          time.Now,
	}
}

func (t *DensityTracker) windowLocked() time.Duration {
	w := t.window()
	if w <= 0 {
		w = time.Minute
	}
	return w
}

// Record appends an activity record for the channel and prunes everything
// that fell out of the window. participantID may be empty (e.g. for the
// bot's own sends).
func (t *DensityTracker) Record(channelID, participantID string, fromBot bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.records[channelID] = append(t.records[channelID], activityRecord{at: now, fromBot: fromBot})
	t.lastActivity[channelID] = now

	if participantID != "" && !fromBot {
		seen, ok := t.lastSeen[channelID]
		if !ok {
			seen = make(map[string]time.Time)
			t.lastSeen[channelID] = seen
		}
		seen[participantID] = now
	}

	window := t.windowLocked()
	t.pruneLocked(channelID, window)
	cutoff := now.Add(-window)
	for id, at := range t.lastSeen[channelID] {
		if at.Before(cutoff) {
			delete(t.lastSeen[channelID], id)
		}
	}
}

// GetDensity returns windowed counts for the channel. Records outside the
// window are pruned on access.
func (t *DensityTracker) GetDensity(channelID string, window time.Duration) Density {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(channelID, window)

	var d Density
	for _, r := range t.records[channelID] {
		if r.fromBot {
			d.BotCount++
		} else {
			d.UserCount++
		}
	}
	d.Total = d.BotCount + d.UserCount
	return d
}

// UniqueParticipantCount returns how many distinct participants were seen in
// the channel within the window.
func (t *DensityTracker) UniqueParticipantCount(channelID string, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-window)
	seen := t.lastSeen[channelID]
	count := 0
	for id, at := range seen {
		if at.Before(cutoff) {
			delete(seen, id)
			continue
		}
		count++
	}
	return count
}

// LastActivity returns the time of the channel's most recent recorded
// activity, and whether any was recorded.
func (t *DensityTracker) LastActivity(channelID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.lastActivity[channelID]
	return at, ok
}

// Prune drops records older than the window for the channel. Reads prune
// lazily already; this is the explicit seam for callers and tests.
func (t *DensityTracker) Prune(channelID string, window time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(channelID, window)
}

func (t *DensityTracker) pruneLocked(channelID string, window time.Duration) {
	recs := t.records[channelID]
	if len(recs) == 0 {
		return
	}
	cutoff := t.now().Add(-window)
	// Records are append-ordered; find the first still inside the window.
	keep := 0
	for keep < len(recs) && recs[keep].at.Before(cutoff) {
		keep++
	}
	if keep == 0 {
		return
	}
	if keep == len(recs) {
		delete(t.records, channelID)
		return
	}
	t.records[channelID] = append([]activityRecord(nil), recs[keep:]...)
}
