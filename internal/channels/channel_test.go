package channels

import (
	"context"
	"testing"
	"time"

	"github.com/natterhub/natter/internal/bus"
)

func TestBaseChannel_IsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowList []string
		sender    string
		want      bool
	}{
		{"empty list allows everyone", nil, "anyone", true},
		{"listed sender", []string{"alice"}, "alice", true},
		{"unlisted sender", []string{"alice"}, "bob", false},
		{"at-prefixed entry", []string{"@alice"}, "alice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewBaseChannel("test", func(bus.InboundEvent) {}, tt.allowList)
			if got := c.IsAllowed(tt.sender); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.sender, got, tt.want)
			}
		})
	}
}

func TestBaseChannel_HandleMessage(t *testing.T) {
	got := make(chan bus.InboundEvent, 1)
	c := NewBaseChannel("test", func(ev bus.InboundEvent) { got <- ev }, nil)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.HandleMessage("chan-1", "alice", "hello", false, ts)

	select {
	case ev := <-got:
		if ev.Channel != "test" || ev.ChannelID != "chan-1" || ev.AuthorID != "alice" || ev.Text != "hello" {
			t.Errorf("event = %+v", ev)
		}
		if ev.ID == "" {
			t.Error("event should carry a generated id")
		}
		if !ev.Timestamp.Equal(ts) {
			t.Errorf("timestamp = %v, want %v", ev.Timestamp, ts)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestBaseChannel_HandleMessageFiltersSenders(t *testing.T) {
	got := make(chan bus.InboundEvent, 1)
	c := NewBaseChannel("test", func(ev bus.InboundEvent) { got <- ev }, []string{"alice"})

	c.HandleMessage("chan-1", "mallory", "hi", false, time.Now())

	select {
	case ev := <-got:
		t.Fatalf("blocked sender dispatched event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

type stubChannel struct {
	*BaseChannel
	sent []bus.OutboundMessage
}

func newStubChannel(name string) *stubChannel {
	s := &stubChannel{BaseChannel: NewBaseChannel(name, func(bus.InboundEvent) {}, nil)}
	s.SetRunning(true)
	return s
}

func (s *stubChannel) Start(ctx context.Context) error { return nil }
func (s *stubChannel) Stop(ctx context.Context) error  { s.SetRunning(false); return nil }
func (s *stubChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	s.sent = append(s.sent, msg)
	return nil
}

func TestManager_SendRoutesByChannelName(t *testing.T) {
	m := NewManager()
	tg := newStubChannel("telegram")
	dc := newStubChannel("discord")
	m.Register(tg)
	m.Register(dc)

	msg := bus.OutboundMessage{Channel: "discord", ChannelID: "c1", Content: "hi"}
	if err := m.SendMessageToChannel(context.Background(), msg); err != nil {
		t.Fatalf("SendMessageToChannel: %v", err)
	}
	if len(dc.sent) != 1 || len(tg.sent) != 0 {
		t.Errorf("message routed wrong: discord=%d telegram=%d", len(dc.sent), len(tg.sent))
	}
}

func TestManager_SendUnknownChannel(t *testing.T) {
	m := NewManager()
	err := m.SendMessageToChannel(context.Background(), bus.OutboundMessage{Channel: "nope"})
	if err == nil {
		t.Error("unknown channel should error")
	}
}
