package engine

import (
	"testing"
	"time"

	"github.com/natterhub/natter/internal/config"
)

func fp(v float64) *float64 { return &v }

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		BaseChance:       fp(0.2),
		Wakewords:        config.FlexibleStringSlice{"natter"},
		InterrobangBonus: fp(0.2),
		BotModifier:      fp(-0.3),
		ForceReplyMarker: "[force]",
		DecayRate:        fp(1.0),
		ActivityWindowMS: 60000,
	}
}

func newTestDecision(cfg config.EngineConfig) (*DecisionEngine, *DensityTracker) {
	density := NewDensityTracker(func() time.Duration { return time.Minute })
	e := NewDecisionEngine(func() config.EngineConfig { return cfg }, density)
	return e, density
}

func TestShouldReply_ForcedOutcomes(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"force marker", "please respond [force] now"},
		{"wakeword prefix", "natter, what do you think"},
		{"wakeword different case", "NATTER hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestDecision(testEngineConfig())
			// rand pinned high: forced decisions must not consult it.
			e.randF = func() float64 { return 0.999999 }
			if !e.ShouldReply("c1", tt.text, false) {
				t.Errorf("ShouldReply(%q) = false, want guaranteed reply", tt.text)
			}
		})
	}
}

func TestShouldReply_WakewordFromBotIsProbabilistic(t *testing.T) {
	// Wakeword raises the chance to 1, the bot modifier drags it back to
	// 0.7, so the outcome goes through the random draw.
	e, density := newTestDecision(testEngineConfig())
	now := time.Now()
	e.now = func() time.Time { return now }
	density.now = func() time.Time { return now }
	density.Record("c1", "alice", false) // decay factor 1.0

	e.randF = func() float64 { return 0.69 }
	if !e.ShouldReply("c1", "natter hi", true) {
		t.Error("rand below 0.7 should reply")
	}
	e.randF = func() float64 { return 0.71 }
	if e.ShouldReply("c1", "natter hi", true) {
		t.Error("rand above 0.7 should not reply")
	}
}

func TestShouldReply_BotModifierClampsToZero(t *testing.T) {
	cfg := testEngineConfig()
	cfg.BaseChance = fp(0.2)
	cfg.BotModifier = fp(-0.3)
	e, _ := newTestDecision(cfg)
	e.randF = func() float64 { return 0.0 } // would always pass if rand were consulted

	if e.ShouldReply("c1", "plain bot message", true) {
		t.Error("chance clamped to <= 0 must never reply")
	}
}

func TestShouldReply_ProbabilisticBranches(t *testing.T) {
	cfg := testEngineConfig()
	e, density := newTestDecision(cfg)
	now := time.Now()
	e.now = func() time.Time { return now }
	density.now = func() time.Time { return now }

	density.Record("c1", "alice", false) // decay factor 1.0 (no elapsed time)

	// effective chance = 0.2 * 1.0
	e.randF = func() float64 { return 0.19 }
	if !e.ShouldReply("c1", "just chatting", false) {
		t.Error("rand below chance should reply")
	}
	e.randF = func() float64 { return 0.21 }
	if e.ShouldReply("c1", "just chatting", false) {
		t.Error("rand above chance should not reply")
	}

	// Interrobang raises the chance to 0.4.
	e.randF = func() float64 { return 0.39 }
	if !e.ShouldReply("c1", "really?", false) {
		t.Error("interrobang bonus should raise the chance")
	}
}

func TestDecayFactor(t *testing.T) {
	cfg := testEngineConfig()
	e, density := newTestDecision(cfg)
	now := time.Now()
	e.now = func() time.Time { return now }
	density.now = func() time.Time { return now }

	// No recorded activity floors at 0.5.
	if got := e.DecayFactor("empty"); got != 0.5 {
		t.Errorf("DecayFactor(no activity) = %v, want 0.5", got)
	}

	density.Record("c1", "alice", false)
	if got := e.DecayFactor("c1"); got != 1.0 {
		t.Errorf("DecayFactor(just now) = %v, want 1.0", got)
	}

	// exp(-1*30000/60000) ≈ 0.6065, still above the floor.
	now = now.Add(30 * time.Second)
	got := e.DecayFactor("c1")
	if got < 0.60 || got > 0.61 {
		t.Errorf("DecayFactor(30s) = %v, want ≈0.6065", got)
	}

	// Long silence floors at 0.5.
	now = now.Add(10 * time.Minute)
	if got := e.DecayFactor("c1"); got != 0.5 {
		t.Errorf("DecayFactor(long silence) = %v, want floor 0.5", got)
	}
}

func TestHasWakeword(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wakewords []string
		want      bool
	}{
		{"prefix match", "natter hello", []string{"natter"}, true},
		{"leading whitespace", "   natter hi", []string{"natter"}, true},
		{"mid-text no match", "hey natter", []string{"natter"}, false},
		{"empty wakeword ignored", "anything", []string{""}, false},
		{"no wakewords", "natter hi", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasWakeword(tt.text, tt.wakewords); got != tt.want {
				t.Errorf("hasWakeword(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
