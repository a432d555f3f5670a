package engine

import (
	"strings"
	"sync"
	"time"
)

type dupRecord struct {
	content string // normalized
	at      time.Time
}

// DuplicateCache keeps a bounded per-channel history of recently sent
// message contents. Content is normalized before comparison so trivial
// whitespace or casing differences still count as duplicates. When disabled,
// both operations are no-ops.
type DuplicateCache struct {
	mu         sync.Mutex
	entries    map[string][]dupRecord
	window     time.Duration
	maxHistory int
	enabled    bool
	now        func() time.Time
}

// NewDuplicateCache creates a cache with the given window and history cap.
func NewDuplicateCache(enabled bool, window time.Duration, maxHistory int) *DuplicateCache {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &DuplicateCache{
		entries:    make(map[string][]dupRecord),
		window:     window,
		maxHistory: maxHistory,
		enabled:    enabled,
		now:        time.Now,
	}
}

// IsDuplicate reports whether normalized content was sent to the channel
// within the window. Always false when suppression is disabled.
func (c *DuplicateCache) IsDuplicate(channelID, content string) bool {
	if !c.enabled {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(channelID)
	norm := normalizeContent(content)
	for _, r := range c.entries[channelID] {
		if r.content == norm {
			return true
		}
	}
	return false
}

// Record appends content to the channel's history after a successful send,
// evicting oldest entries beyond the cap.
func (c *DuplicateCache) Record(channelID, content string) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(channelID)
	recs := append(c.entries[channelID], dupRecord{content: normalizeContent(content), at: c.now()})
	if len(recs) > c.maxHistory {
		recs = recs[len(recs)-c.maxHistory:]
	}
	c.entries[channelID] = recs
}

func (c *DuplicateCache) pruneLocked(channelID string) {
	recs := c.entries[channelID]
	if len(recs) == 0 {
		return
	}
	cutoff := c.now().Add(-c.window)
	keep := 0
	for keep < len(recs) && recs[keep].at.Before(cutoff) {
		keep++
	}
	switch {
	case keep == 0:
	case keep == len(recs):
		delete(c.entries, channelID)
	default:
		c.entries[channelID] = append([]dupRecord(nil), recs[keep:]...)
	}
}

// normalizeContent lowercases, trims, and collapses internal whitespace.
func normalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
