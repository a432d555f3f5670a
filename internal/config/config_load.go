package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/titanous/json5"
)

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		Bot: BotConfig{
			ID: "natter",
		},
		Engine: EngineConfig{
			ActivityWindowMS:      60000,
			FatigueLimit:          5.0,
			FatigueDecayPerMinute: 0.5,
			DedupeWindowMS:        300000,
			DedupeMaxHistory:      10,
			MinDelayMS:            1000,
			MaxDelayMS:            10000,
		},
		Commands: CommandsConfig{
			Prefix: "!",
		},
		Idle: IdleConfig{
			Schedule:         "*/30 * * * *",
			FatigueThreshold: 3.0,
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			ServiceName: "natter",
		},
	}
}

// Load reads config from a JSON5 file, overlays env vars, and canonicalizes
// weight maps. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	cfg.validateWeights()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Secrets are only ever
// read from the environment, never from the config file.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("NATTER_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("NATTER_DISCORD_TOKEN", &c.Channels.Discord.Token)
	envStr("NATTER_BOT_ID", &c.Bot.ID)

	for i := range c.Providers.Instances {
		inst := &c.Providers.Instances[i]
		key := "NATTER_" + strings.ToUpper(strings.ReplaceAll(inst.Name, "-", "_")) + "_API_KEY"
		envStr(key, &inst.APIKey)
	}

	// Auto-enable channels if credentials arrive via env
	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if c.Channels.Discord.Token != "" {
		c.Channels.Discord.Enabled = true
	}
}

// applyDefaults replaces zero values with the documented defaults and assigns
// ids to provider instances that lack one. Pointer knobs (base chance, the
// chance modifiers, the decay rates) need no treatment here: nil already
// means unset and their accessors supply the default, so an explicit zero in
// the file is preserved.
func (c *Config) applyDefaults() {
	d := Default()
	e := &c.Engine
	if e.ActivityWindowMS == 0 {
		e.ActivityWindowMS = d.Engine.ActivityWindowMS
	}
	if e.FatigueLimit == 0 {
		e.FatigueLimit = d.Engine.FatigueLimit
	}
	if e.FatigueDecayPerMinute == 0 {
		e.FatigueDecayPerMinute = d.Engine.FatigueDecayPerMinute
	}
	if e.DedupeWindowMS == 0 {
		e.DedupeWindowMS = d.Engine.DedupeWindowMS
	}
	if e.DedupeMaxHistory == 0 {
		e.DedupeMaxHistory = d.Engine.DedupeMaxHistory
	}
	if e.MinDelayMS == 0 {
		e.MinDelayMS = d.Engine.MinDelayMS
	}
	if e.MaxDelayMS == 0 {
		e.MaxDelayMS = d.Engine.MaxDelayMS
	}
	if c.Commands.Prefix == "" {
		c.Commands.Prefix = d.Commands.Prefix
	}
	if c.Bot.ID == "" {
		c.Bot.ID = d.Bot.ID
	}
	if c.Idle.Schedule == "" {
		c.Idle.Schedule = d.Idle.Schedule
	}
	if c.Idle.FatigueThreshold == 0 {
		c.Idle.FatigueThreshold = d.Idle.FatigueThreshold
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = d.Telemetry.Endpoint
	}
	if c.Telemetry.Protocol == "" {
		c.Telemetry.Protocol = d.Telemetry.Protocol
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = d.Telemetry.ServiceName
	}

	for i := range c.Providers.Instances {
		if c.Providers.Instances[i].ID == "" {
			c.Providers.Instances[i].ID = uuid.NewString()
		}
	}
}

// validateWeights rejects malformed weight entries with a logged warning
// instead of silently coercing them. Bonuses must lie in [0,2]; priorities
// must be integral and greater than -1 (the router divides by 1+priority).
func (c *Config) validateWeights() {
	for _, bad := range c.Routing.Bonuses.Rejected {
		slog.Warn("routing: malformed bonus entry rejected", "entry", bad)
	}
	for _, bad := range c.Routing.Priorities.Rejected {
		slog.Warn("routing: malformed priority entry rejected", "entry", bad)
	}
	for id, v := range c.Routing.Bonuses.Values {
		if v < 0 || v > 2 {
			slog.Warn("routing: bonus outside [0,2] rejected", "channel", id, "value", v)
			delete(c.Routing.Bonuses.Values, id)
		}
	}
	for id, v := range c.Routing.Priorities.Values {
		if v != float64(int(v)) {
			slog.Warn("routing: non-integer priority rejected", "channel", id, "value", v)
			delete(c.Routing.Priorities.Values, id)
			continue
		}
		if int(v) <= -1 {
			slog.Warn("routing: priority <= -1 rejected", "channel", id, "value", v)
			delete(c.Routing.Priorities.Values, id)
		}
	}
}

// HasAnyProvider reports whether at least one enabled instance has an API key.
func (c *Config) HasAnyProvider() bool {
	for _, inst := range c.Providers.Instances {
		if inst.IsEnabled() && inst.APIKey != "" {
			return true
		}
	}
	return false
}
