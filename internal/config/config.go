package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// WeightMap accepts either an object {"chan": 1.5} or the legacy delimited
// string form "chan=1.5,other=0.8". It is canonicalized to a plain map at
// load time; malformed entries are collected in Rejected and logged by Load.
type WeightMap struct {
	Values   map[string]float64
	Rejected []string
}

func (w *WeightMap) UnmarshalJSON(data []byte) error {
	w.Values = make(map[string]float64)
	w.Rejected = nil

	var obj map[string]float64
	if err := json.Unmarshal(data, &obj); err == nil {
		w.Values = obj
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("weight map must be an object or a delimited string")
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			w.Rejected = append(w.Rejected, pair)
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			w.Rejected = append(w.Rejected, pair)
			continue
		}
		w.Values[strings.TrimSpace(key)] = f
	}
	return nil
}

// MarshalJSON writes the canonical object form.
func (w WeightMap) MarshalJSON() ([]byte, error) {
	if len(w.Values) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(w.Values)
}

// Config is the root configuration for the natter gateway.
type Config struct {
	Bot       BotConfig       `json:"bot"`
	Engine    EngineConfig    `json:"engine"`
	Commands  CommandsConfig  `json:"commands"`
	Providers ProvidersConfig `json:"providers"`
	Tasks     TasksConfig     `json:"tasks,omitempty"`
	Routing   RoutingConfig   `json:"routing,omitempty"`
	Channels  ChannelsConfig  `json:"channels"`
	Idle      IdleConfig      `json:"idle,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	mu        sync.RWMutex
}

// BotConfig identifies this bot instance. Swarm enables per-bot lock keying
// when several instances share one external identity.
type BotConfig struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Swarm bool   `json:"swarm,omitempty"`
}

// EngineConfig carries every tunable of the orchestration core. All values
// have documented defaults. Knobs where zero is a meaningful setting are
// pointers, like DedupeEnabled: nil means unset and falls back to the
// default, so an explicit 0 in the file survives loading. Read them via the
// *Value accessors.
type EngineConfig struct {
	BaseChance       *float64            `json:"base_chance,omitempty"` // default 0.2
	Wakewords        FlexibleStringSlice `json:"wakewords,omitempty"`
	InterrobangBonus *float64            `json:"interrobang_bonus,omitempty"` // default 0.2
	BotModifier      *float64            `json:"bot_modifier,omitempty"`      // default -0.3
	ForceReplyMarker string              `json:"force_reply_marker,omitempty"`
	DecayRate        *float64            `json:"decay_rate,omitempty"` // default 1.0
	ActivityWindowMS int                 `json:"activity_window_ms"`   // default 60000

	FatigueLimit          float64 `json:"fatigue_limit"`            // default 5.0
	FatigueDecayPerMinute float64 `json:"fatigue_decay_per_minute"` // default 0.5

	DedupeEnabled    *bool `json:"dedupe_enabled,omitempty"` // default true
	DedupeWindowMS   int   `json:"dedupe_window_ms"`         // default 300000
	DedupeMaxHistory int   `json:"dedupe_max_history"`       // default 10

	MinDelayMS     int      `json:"min_delay_ms"`               // default 1000
	MaxDelayMS     int      `json:"max_delay_ms"`               // default 10000
	DelayDecayRate *float64 `json:"delay_decay_rate,omitempty"` // default -0.5
}

// DedupeOn reports whether duplicate suppression is enabled (default true).
func (e EngineConfig) DedupeOn() bool {
	return e.DedupeEnabled == nil || *e.DedupeEnabled
}

func floatOr(p *float64, def float64) float64 {
	if p != nil {
		return *p
	}
	return def
}

// BaseChanceValue returns the base reply chance (default 0.2).
func (e EngineConfig) BaseChanceValue() float64 { return floatOr(e.BaseChance, 0.2) }

// InterrobangBonusValue returns the !/? chance bonus (default 0.2).
func (e EngineConfig) InterrobangBonusValue() float64 { return floatOr(e.InterrobangBonus, 0.2) }

// BotModifierValue returns the bot-origin chance modifier (default -0.3).
func (e EngineConfig) BotModifierValue() float64 { return floatOr(e.BotModifier, -0.3) }

// DecayRateValue returns the activity decay rate (default 1.0).
func (e EngineConfig) DecayRateValue() float64 { return floatOr(e.DecayRate, 1.0) }

// DelayDecayRateValue returns the send delay decay exponent (default -0.5).
func (e EngineConfig) DelayDecayRateValue() float64 { return floatOr(e.DelayDecayRate, -0.5) }

// CommandsConfig configures the in-chat command resolver.
type CommandsConfig struct {
	Prefix         string              `json:"prefix"` // default "!"
	DefaultCommand string              `json:"default_command,omitempty"`
	AllowFrom      FlexibleStringSlice `json:"allow_from,omitempty"` // empty = everyone
	Aliases        map[string]Alias    `json:"aliases,omitempty"`
}

// Alias expands a shorthand name to a full command.
type Alias struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// ProvidersConfig lists the configured completion backends.
type ProvidersConfig struct {
	Instances []ProviderInstance `json:"instances,omitempty"`
}

// ProviderInstance describes one completion backend. Type selects the client
// implementation ("openai" for any OpenAI-compatible API, "anthropic" for the
// native Anthropic API).
type ProviderInstance struct {
	ID      string `json:"id,omitempty"` // uuid assigned at load when empty
	Name    string `json:"name"`
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled,omitempty"` // default true
	APIKey  string `json:"-"`                 // from env NATTER_<NAME>_API_KEY only
	APIBase string `json:"api_base,omitempty"`
	Model   string `json:"model,omitempty"`
}

// IsEnabled reports whether the instance is enabled (default true).
func (p ProviderInstance) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// TasksConfig holds optional per-task provider/model overrides.
type TasksConfig struct {
	Semantic *TaskOverride `json:"semantic,omitempty"`
	Summary  *TaskOverride `json:"summary,omitempty"`
	Followup *TaskOverride `json:"followup,omitempty"`
	Idle     *TaskOverride `json:"idle,omitempty"`
}

// TaskOverride pins a logical task to a provider and/or model.
type TaskOverride struct {
	Provider string `json:"provider,omitempty"` // id, name, or type reference
	Model    string `json:"model,omitempty"`
}

// Override returns the override for a task name, nil if unset.
func (t TasksConfig) Override(task string) *TaskOverride {
	switch task {
	case "semantic":
		return t.Semantic
	case "summary":
		return t.Summary
	case "followup":
		return t.Followup
	case "idle":
		return t.Idle
	}
	return nil
}

// RoutingConfig carries the channel router weight maps.
type RoutingConfig struct {
	Bonuses    WeightMap `json:"bonuses,omitempty"`    // channelId -> [0,2], default 1.0
	Priorities WeightMap `json:"priorities,omitempty"` // channelId -> int, default 0
}

// ChannelsConfig configures the platform adapters.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram,omitempty"`
	Discord  DiscordConfig  `json:"discord,omitempty"`
}

// TelegramConfig configures the Telegram adapter (long polling).
type TelegramConfig struct {
	Enabled   bool                `json:"enabled,omitempty"`
	Token     string              `json:"-"` // from env NATTER_TELEGRAM_TOKEN only
	AllowFrom FlexibleStringSlice `json:"allow_from,omitempty"`
}

// DiscordConfig configures the Discord adapter (gateway events).
type DiscordConfig struct {
	Enabled   bool                `json:"enabled,omitempty"`
	Token     string              `json:"-"` // from env NATTER_DISCORD_TOKEN only
	AllowFrom FlexibleStringSlice `json:"allow_from,omitempty"`
}

// IdleConfig drives unprompted idle chatter.
type IdleConfig struct {
	Enabled          bool     `json:"enabled,omitempty"`
	Schedule         string   `json:"schedule,omitempty"` // cron expression, default "*/30 * * * *"
	Prompt           string   `json:"prompt,omitempty"`
	Channels         []string `json:"channels,omitempty"` // candidate channel ids
	FatigueThreshold float64  `json:"fatigue_threshold"`  // default 3.0
}

// TelemetryConfig configures the OTLP trace exporter.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"` // default localhost:4317
	Protocol    string `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool   `json:"insecure,omitempty"`
	ServiceName string `json:"service_name,omitempty"` // default "natter"
}

// Snapshot returns a copy of the engine config under the read lock. The
// watcher replaces engine knobs in place; callers that cache a snapshot see
// a consistent view.
func (c *Config) Snapshot() EngineConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Engine
}

// ReplaceEngine swaps the engine knobs, used by the config watcher.
func (c *Config) ReplaceEngine(e EngineConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Engine = e
}

// RoutingSnapshot returns the routing weights under the read lock.
func (c *Config) RoutingSnapshot() RoutingConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Routing
}

// ReplaceRouting swaps the routing weights, used by the config watcher.
func (c *Config) ReplaceRouting(r RoutingConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Routing = r
}
