package engine

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/natterhub/natter/internal/config"
)

// DecisionEngine turns an inbound message into a go/no-go reply decision.
// It starts from a configurable base chance, applies wakeword / punctuation /
// bot-origin modifiers, then dampens by a decay factor derived from how long
// the channel has been quiet. The random source is injectable so tests can
// force both branches.
type DecisionEngine struct {
	cfg     func() config.EngineConfig
	density *DensityTracker
	randF   func() float64
	now     func() time.Time
}

// NewDecisionEngine creates a decision engine. cfg is re-read on every call
// so watcher reloads take effect without reconstruction.
func NewDecisionEngine(cfg func() config.EngineConfig, density *DensityTracker) *DecisionEngine {
	return &DecisionEngine{
		cfg:     cfg,
		density: density,
		randF:   rand.Float64,
		now:     time.Now,
	}
}

// ShouldReply decides whether the bot replies to text in the channel.
func (e *DecisionEngine) ShouldReply(channelID, text string, isFromBot bool) bool {
	cfg := e.cfg()
	chance := cfg.BaseChanceValue()

	if cfg.ForceReplyMarker != "" && strings.Contains(text, cfg.ForceReplyMarker) {
		return true
	}

	if hasWakeword(text, cfg.Wakewords) {
		chance = 1
	} else if endsInterrobang(text) {
		chance += cfg.InterrobangBonusValue()
	}

	if isFromBot {
		chance += cfg.BotModifierValue()
	}

	if chance >= 1 {
		return true
	}
	if chance <= 0 {
		return false
	}

	return e.randF() < chance*e.DecayFactor(channelID)
}

// DecayFactor returns the activity decay multiplier in [0.5, 1]: recent
// channel activity keeps it near 1, long silences floor it at 0.5. A channel
// with no recorded activity gets the floor.
func (e *DecisionEngine) DecayFactor(channelID string) float64 {
	cfg := e.cfg()
	last, ok := e.density.LastActivity(channelID)
	if !ok {
		return 0.5
	}
	elapsedMS := float64(e.now().Sub(last).Milliseconds())
	if elapsedMS < 0 {
		elapsedMS = 0
	}
	windowMS := float64(cfg.ActivityWindowMS)
	if windowMS <= 0 {
		windowMS = 60000
	}
	return math.Max(0.5, math.Exp(-cfg.DecayRateValue()*elapsedMS/windowMS))
}

func hasWakeword(text string, wakewords []string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	for _, w := range wakewords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.HasPrefix(trimmed, w) {
			return true
		}
	}
	return false
}

func endsInterrobang(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?")
}
