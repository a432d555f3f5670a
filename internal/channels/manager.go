package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/natterhub/natter/internal/bus"
)

// outboundRate paces sends per channel id to stay under platform limits
// (roughly one message per second with small bursts).
const (
	outboundRate  = rate.Limit(1)
	outboundBurst = 3
)

// Manager owns the channel adapters and routes outbound messages to the
// right one. It implements bus.Sender for the engine.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	limiters map[string]*rate.Limiter // per channel id
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		channels: make(map[string]Channel),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Register adds a channel adapter.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// StartAll starts every registered channel. Failure of one channel is
// logged and does not abort the others.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			slog.Error("failed to start channel", "channel", name, "error", err)
			continue
		}
		slog.Info("channel started", "channel", name)
	}
}

// StopAll stops every running channel.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, ch := range m.channels {
		if !ch.IsRunning() {
			continue
		}
		if err := ch.Stop(ctx); err != nil {
			slog.Warn("failed to stop channel", "channel", name, "error", err)
		}
	}
}

func (m *Manager) limiter(channelID string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.limiters[channelID]
	if !ok {
		l = rate.NewLimiter(outboundRate, outboundBurst)
		m.limiters[channelID] = l
	}
	return l
}

// SendMessageToChannel delivers an outbound message through the adapter
// named by msg.Channel, paced by the per-channel rate limiter.
func (m *Manager) SendMessageToChannel(ctx context.Context, msg bus.OutboundMessage) error {
	m.mu.RLock()
	ch, ok := m.channels[msg.Channel]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown channel %q", msg.Channel)
	}

	if err := m.limiter(msg.ChannelID).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return ch.Send(ctx, msg)
}
