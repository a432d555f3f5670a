package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/natterhub/natter/internal/bus"
	"github.com/natterhub/natter/internal/channels"
	"github.com/natterhub/natter/internal/channels/discord"
	"github.com/natterhub/natter/internal/channels/telegram"
	"github.com/natterhub/natter/internal/commands"
	"github.com/natterhub/natter/internal/config"
	"github.com/natterhub/natter/internal/engine"
	"github.com/natterhub/natter/internal/idle"
	"github.com/natterhub/natter/internal/providers"
	"github.com/natterhub/natter/internal/telemetry"
)

func runGateway() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if !cfg.HasAnyProvider() {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			// Config file exists — user already onboarded but forgot to export keys.
			fmt.Println("No provider API key found. Did you forget to export your secrets?")
			fmt.Println()
			fmt.Println("  export NATTER_<PROVIDER>_API_KEY=... && ./natter")
			fmt.Println()
			fmt.Println("Or re-run the setup wizard:  ./natter onboard")
			os.Exit(1)
		}
		fmt.Println("No configuration found. Starting setup wizard...")
		fmt.Println()
		runOnboard()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("tracing setup failed, continuing without traces", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	registry := providers.NewRegistry()
	registerProviders(registry, cfg)

	resolver := commands.NewResolver(cfg.Commands)
	channelMgr := channels.NewManager()

	eng := engine.New(engine.Deps{
		BotID:      cfg.Bot.ID,
		Swarm:      cfg.Bot.Swarm,
		Config:     cfg.Snapshot,
		Resolver:   resolver,
		TaskRouter: providers.NewTaskRouter(registry, cfg.Tasks.Override),
		Fallback:   func() []providers.Provider { return fallbackProviders(registry) },
		Sender:     channelMgr,
		OnCommand:  builtinCommands(channelMgr, resolver, cfg),
	}, cfg.RoutingSnapshot)

	onEvent := func(ev bus.InboundEvent) {
		if err := eng.HandleInbound(ctx, ev); err != nil {
			slog.Error("event handling failed", "channel", ev.Channel, "channel_id", ev.ChannelID, "error", err)
		}
	}

	if cfg.Channels.Telegram.Enabled {
		tg, tgErr := telegram.New(cfg.Channels.Telegram, onEvent)
		if tgErr != nil {
			slog.Error("telegram setup failed", "error", tgErr)
		} else {
			channelMgr.Register(tg)
		}
	}
	if cfg.Channels.Discord.Enabled {
		dc, dcErr := discord.New(cfg.Channels.Discord, onEvent)
		if dcErr != nil {
			slog.Error("discord setup failed", "error", dcErr)
		} else {
			channelMgr.Register(dc)
		}
	}

	channelMgr.StartAll(ctx)

	if err := config.Watch(ctx, cfgPath, cfg, nil); err != nil {
		slog.Warn("config watch unavailable, edits require restart", "error", err)
	}

	if cfg.Idle.Enabled {
		idleSvc, idleErr := idle.New(cfg.Idle, cfg.Bot.ID, eng)
		if idleErr != nil {
			slog.Error("idle service setup failed", "error", idleErr)
			os.Exit(1)
		}
		go idleSvc.Run(ctx)
	}

	slog.Info("natter gateway running", "bot", cfg.Bot.ID, "config", cfgPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("graceful shutdown initiated", "signal", sig)
	channelMgr.StopAll(context.Background())
	if err := shutdownTracing(context.Background()); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}
	cancel()
}

func registerProviders(registry *providers.Registry, cfg *config.Config) {
	for _, inst := range cfg.Providers.Instances {
		if !inst.IsEnabled() {
			slog.Debug("provider disabled, skipping", "name", inst.Name)
			continue
		}
		registry.Register(inst)
		slog.Info("registered provider", "name", inst.Name, "type", inst.Type)
	}
}

// fallbackProviders returns every enabled instance that instantiates
// cleanly, in registration order. Instances that fail to build (missing
// key, unknown type) are skipped so a single bad entry does not take the
// whole chain down.
func fallbackProviders(registry *providers.Registry) []providers.Provider {
	var out []providers.Provider
	for _, inst := range registry.Enabled() {
		p, err := inst.Provider()
		if err != nil {
			slog.Warn("provider unavailable", "name", inst.Name, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out
}

// builtinCommands handles prefixed commands the gateway answers itself.
// Replies bypass the send scheduler: command output is expected promptly.
func builtinCommands(sender bus.Sender, resolver *commands.Resolver, cfg *config.Config) engine.CommandHandler {
	return func(ctx context.Context, ev bus.InboundEvent, cmd commands.Command) error {
		var reply string
		switch resolver.ResolveAlias(cmd.Name) {
		case "ping":
			reply = "pong"
		case "help":
			reply = helpText(cfg.Commands)
		default:
			reply = "Unknown command. Try " + cfg.Commands.Prefix + "help"
		}
		return sender.SendMessageToChannel(ctx, bus.OutboundMessage{
			Channel:   ev.Channel,
			ChannelID: ev.ChannelID,
			Content:   reply,
		})
	}
}

func helpText(cfg config.CommandsConfig) string {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "!"
	}
	lines := []string{
		"Commands:",
		"  " + prefix + "ping — check the bot is alive",
		"  " + prefix + "help — this message",
	}
	names := make([]string, 0, len(cfg.Aliases))
	for name := range cfg.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := cfg.Aliases[name]
		line := "  " + prefix + name + " — " + a.Command
		if a.Description != "" {
			line += " (" + a.Description + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
