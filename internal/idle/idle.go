// Package idle drives unprompted chatter: when the configured cron schedule
// is due and the bot isn't too fatigued, it picks the best candidate channel
// and pushes an idle message through the engine.
package idle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/natterhub/natter/internal/config"
	"github.com/natterhub/natter/internal/engine"
)

const defaultPrompt = "Say something interesting to restart the conversation."

// Service periodically checks the schedule and triggers idle messages.
type Service struct {
	cfg    config.IdleConfig
	botID  string
	eng    *engine.Engine
	gron   *gronx.Gronx
	ticker time.Duration
}

// New creates an idle service. Returns an error if the cron expression is
// invalid, so misconfiguration surfaces at startup rather than silently
// never firing.
func New(cfg config.IdleConfig, botID string, eng *engine.Engine) (*Service, error) {
	g := gronx.New()
	if !g.IsValid(cfg.Schedule) {
		return nil, fmt.Errorf("idle: invalid schedule %q", cfg.Schedule)
	}
	return &Service{
		cfg:    cfg,
		botID:  botID,
		eng:    eng,
		gron:   g,
		ticker: time.Minute,
	}, nil
}

// Run blocks until ctx is cancelled, checking the schedule once per minute.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.ticker)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := s.gron.IsDue(s.cfg.Schedule, time.Now())
			if err != nil || !due {
				continue
			}
			s.trigger(ctx)
		}
	}
}

func (s *Service) trigger(ctx context.Context) {
	if score := s.eng.Fatigue().GetScore(s.botID); score >= s.cfg.FatigueThreshold {
		slog.Debug("idle message skipped, bot fatigued", "score", score)
		return
	}

	channelID, ok := s.eng.Router().PickBestChannel(s.cfg.Channels)
	if !ok {
		slog.Debug("idle message skipped, no candidate channels")
		return
	}

	prompt := s.cfg.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}

	// Idle channels are addressed as "<adapter>:<chat id>" in config.
	channel, chatID := splitChannelRef(channelID)
	if err := s.eng.HandleIdle(ctx, channel, chatID, prompt); err != nil {
		slog.Warn("idle message failed", "channel_id", channelID, "error", err)
	}
}

func splitChannelRef(ref string) (channel, chatID string) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == ':' {
			return ref[:i], ref[i+1:]
		}
	}
	return "", ref
}
