// Package bus defines the message types exchanged between channel adapters
// and the orchestration engine.
package bus

import (
	"context"
	"time"
)

// InboundEvent is the canonical inbound conversational event. Every channel
// adapter translates platform messages into this shape before handing them
// to the engine.
type InboundEvent struct {
	ID        string            `json:"id"` // uuid assigned at ingestion
	Channel   string            `json:"channel"`
	ChannelID string            `json:"channel_id"` // conversational destination (room/thread)
	AuthorID  string            `json:"author_id"`
	Text      string            `json:"text"`
	FromBot   bool              `json:"from_bot"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// OutboundMessage is a reply to be delivered to a channel.
type OutboundMessage struct {
	Channel   string            `json:"channel"`
	ChannelID string            `json:"channel_id"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sender delivers an outbound message to its channel. Implemented by the
// channel manager; the engine never talks to platform SDKs directly.
type Sender interface {
	SendMessageToChannel(ctx context.Context, msg OutboundMessage) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg OutboundMessage) error

// SendMessageToChannel calls f.
func (f SenderFunc) SendMessageToChannel(ctx context.Context, msg OutboundMessage) error {
	return f(ctx, msg)
}
