// Package channels provides the channel abstraction layer for
// multi-platform messaging. Adapters translate platform events into the
// canonical inbound event and deliver outbound replies; all orchestration
// logic stays in the engine.
package channels

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/natterhub/natter/internal/bus"
)

// Channel defines the interface all channel implementations must satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g. "telegram", "discord").
	Name() string

	// Start begins listening for messages. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message to the channel.
	Send(ctx context.Context, msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is actively processing messages.
	IsRunning() bool
}

// EventHandler receives canonical inbound events from adapters. Handlers
// run concurrently; one handler per event.
type EventHandler func(ev bus.InboundEvent)

// BaseChannel provides shared functionality for channel implementations.
type BaseChannel struct {
	name      string
	running   bool
	allowList []string
	onEvent   EventHandler
}

// NewBaseChannel creates a BaseChannel.
func NewBaseChannel(name string, onEvent EventHandler, allowList []string) *BaseChannel {
	return &BaseChannel{name: name, onEvent: onEvent, allowList: allowList}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running = running }

// IsAllowed checks the sender against the allowlist. Empty allowlist means
// all senders are allowed.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}
	for _, allowed := range c.allowList {
		if senderID == allowed || senderID == strings.TrimPrefix(allowed, "@") {
			return true
		}
	}
	return false
}

// HandleMessage builds the canonical inbound event and dispatches it to the
// handler on its own goroutine, so slow handling never stalls the
// platform's receive loop.
func (c *BaseChannel) HandleMessage(channelID, authorID, text string, fromBot bool, ts time.Time) {
	if !c.IsAllowed(authorID) {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	ev := bus.InboundEvent{
		ID:        uuid.NewString(),
		Channel:   c.name,
		ChannelID: channelID,
		AuthorID:  authorID,
		Text:      text,
		FromBot:   fromBot,
		Timestamp: ts,
	}
	go c.onEvent(ev)
}
