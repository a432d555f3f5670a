package engine

import (
	"math"
	"sync"
	"time"

	"github.com/natterhub/natter/internal/config"
)

// ScheduledSend is a pending, cancellable transmission.
type ScheduledSend struct {
	timer     *time.Timer
	mu        sync.Mutex
	cancelled bool
	fired     bool
}

// Cancel stops the send if it has not fired yet. Returns true if the send
// was prevented.
func (s *ScheduledSend) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired || s.cancelled {
		return false
	}
	s.cancelled = true
	s.timer.Stop()
	return true
}

func (s *ScheduledSend) markFiring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return false
	}
	s.fired = true
	return true
}

// ResponseScheduler computes a human-feeling delay before each transmission
// and arms cancellable timers for the actual sends. It keeps its own
// last-incoming-message timestamp per channel, recorded at event-ingestion
// time, separate from the density tracker's windowed records.
type ResponseScheduler struct {
	mu           sync.Mutex
	lastIncoming map[string]time.Time
	pending      map[string]*ScheduledSend
	cfg          func() config.EngineConfig
	now          func() time.Time
}

// NewResponseScheduler creates a scheduler.
func NewResponseScheduler(cfg func() config.EngineConfig) *ResponseScheduler {
	return &ResponseScheduler{
		lastIncoming: make(map[string]time.Time),
		pending:      make(map[string]*ScheduledSend),
		cfg:          cfg,
		now:          time.Now,
	}
}

// LogIncomingMessage records the arrival time of an inbound message for the
// channel. Call at ingestion, before any processing.
func (s *ResponseScheduler) LogIncomingMessage(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastIncoming[channelID] = s.now()
}

// ComputeDelay returns how long to wait before transmitting, given how much
// time generation already consumed. Replies to fresh messages wait close to
// maxDelay (minus processing time already spent); replies into long-idle
// channels clamp down to minDelay. Without a recorded incoming message the
// delay is just minDelay less processing time, floored at zero.
func (s *ResponseScheduler) ComputeDelay(channelID string, processingTime time.Duration) time.Duration {
	cfg := s.cfg()
	minDelay := time.Duration(cfg.MinDelayMS) * time.Millisecond
	maxDelay := time.Duration(cfg.MaxDelayMS) * time.Millisecond

	s.mu.Lock()
	last, ok := s.lastIncoming[channelID]
	now := s.now()
	s.mu.Unlock()

	if !ok {
		d := minDelay - processingTime
		if d < 0 {
			d = 0
		}
		return d
	}

	elapsedSec := now.Sub(last).Seconds()
	if elapsedSec < 0 {
		elapsedSec = 0
	}
	raw := math.Exp(cfg.DelayDecayRateValue()*elapsedSec)*float64(maxDelay) - float64(processingTime)

	d := time.Duration(raw)
	if d < minDelay {
		d = minDelay
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// ScheduleSend arms a timer that invokes sendFn(content) after the computed
// delay. The send is fire-and-forget for the caller and cancellable via the
// returned handle until it fires. A newer scheduled send for the same
// channel supersedes (cancels) a still-pending older one.
func (s *ResponseScheduler) ScheduleSend(channelID, content string, processingTime time.Duration, sendFn func(content string)) *ScheduledSend {
	delay := s.ComputeDelay(channelID, processingTime)

	send := &ScheduledSend{}
	send.timer = time.AfterFunc(delay, func() {
		if !send.markFiring() {
			return
		}
		s.mu.Lock()
		if s.pending[channelID] == send {
			delete(s.pending, channelID)
		}
		s.mu.Unlock()
		sendFn(content)
	})

	s.mu.Lock()
	if prev, ok := s.pending[channelID]; ok {
		// Superseded: the newest reply wins.
		go prev.Cancel()
	}
	s.pending[channelID] = send
	s.mu.Unlock()

	return send
}
