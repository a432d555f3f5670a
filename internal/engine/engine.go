// Package engine implements the response orchestration core: deciding
// whether to reply to an inbound event, which provider generates the reply,
// when the reply is transmitted, and how duplicate or overlapping responses
// are suppressed across concurrent handlers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/natterhub/natter/internal/bus"
	"github.com/natterhub/natter/internal/commands"
	"github.com/natterhub/natter/internal/config"
	"github.com/natterhub/natter/internal/providers"
)

// CommandHandler executes a parsed command. Command business logic lives
// outside the engine; the engine only serializes execution per channel.
type CommandHandler func(ctx context.Context, ev bus.InboundEvent, cmd commands.Command) error

// Deps are the collaborators the engine is constructed with.
type Deps struct {
	BotID      string
	Swarm      bool // key locks by (channel, bot) instead of channel alone
	Config     func() config.EngineConfig
	Resolver   *commands.Resolver
	TaskRouter *providers.TaskRouter
	Fallback   func() []providers.Provider
	Sender     bus.Sender
	OnCommand  CommandHandler // nil disables command execution
}

// Engine wires the orchestration components into the per-event pipeline.
// All state is process-lifetime and in-memory; a restart resets every
// decision heuristic to empty. One Engine instance is shared by all
// in-flight event handlers.
type Engine struct {
	deps Deps

	locks     *LockManager
	density   *DensityTracker
	fatigue   *FatigueTracker
	dupes     *DuplicateCache
	scheduler *ResponseScheduler
	decision  *DecisionEngine
	router    *ChannelRouter

	tracer trace.Tracer
	now    func() time.Time
}

// New constructs an engine and its trackers from the current config.
func New(deps Deps, routing func() config.RoutingConfig) *Engine {
	cfg := deps.Config()
	density := NewDensityTracker(func() time.Duration {
		return time.Duration(deps.Config().ActivityWindowMS) * time.Millisecond
	})
	e := &Engine{
		deps:      deps,
		locks:     NewLockManager(),
		density:   density,
		fatigue:   NewFatigueTracker(cfg.FatigueLimit, cfg.FatigueDecayPerMinute),
		dupes:     NewDuplicateCache(cfg.DedupeOn(), time.Duration(cfg.DedupeWindowMS)*time.Millisecond, cfg.DedupeMaxHistory),
		scheduler: NewResponseScheduler(deps.Config),
		decision:  NewDecisionEngine(deps.Config, density),
		router:    NewChannelRouter(routing),
		tracer:    otel.Tracer("natter/engine"),
		now:       time.Now,
	}
	return e
}

// Density exposes the activity tracker (idle service, tests).
func (e *Engine) Density() *DensityTracker { return e.density }

// Fatigue exposes the fatigue tracker (idle service, tests).
func (e *Engine) Fatigue() *FatigueTracker { return e.fatigue }

// Router exposes the channel router (idle service).
func (e *Engine) Router() *ChannelRouter { return e.router }

// Locks exposes the lock manager.
func (e *Engine) Locks() *LockManager { return e.locks }

// Scheduler exposes the response scheduler.
func (e *Engine) Scheduler() *ResponseScheduler { return e.scheduler }

// Decision exposes the reply decision engine.
func (e *Engine) Decision() *DecisionEngine { return e.decision }

func (e *Engine) lockBot() string {
	if e.deps.Swarm {
		return e.deps.BotID
	}
	return ""
}

// HandleInbound runs the full pipeline for one inbound event. Suppressed
// replies (lock contention, no-go decision, duplicate) are silent: logged,
// never surfaced. Only total provider exhaustion and generation failures
// return an error.
func (e *Engine) HandleInbound(ctx context.Context, ev bus.InboundEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	// Recorded at ingestion time, before any processing, so the send delay
	// reflects when the message actually arrived.
	e.scheduler.LogIncomingMessage(ev.ChannelID)

	ctx, span := e.tracer.Start(ctx, "engine.handle_event", trace.WithAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("channel", ev.Channel),
		attribute.String("channel.id", ev.ChannelID),
		attribute.Bool("from_bot", ev.FromBot),
	))
	defer span.End()

	release, ok := e.locks.TryAcquire(ev.ChannelID, e.lockBot())
	if !ok {
		span.SetAttributes(attribute.String("outcome", "lock_contention"))
		slog.Debug("channel busy, skipping event", "channel_id", ev.ChannelID, "event", ev.ID)
		return nil
	}
	defer release()

	if cmd, matched := e.deps.Resolver.ParseCommand(ev.Text); matched && cmd.Explicit {
		span.SetAttributes(attribute.String("outcome", "command"), attribute.String("command", cmd.Name))
		if !e.deps.Resolver.IsAllowed(ev.AuthorID) {
			slog.Debug("command from unauthorized sender ignored", "sender", ev.AuthorID, "command", cmd.Name)
			return nil
		}
		if e.deps.OnCommand == nil {
			return nil
		}
		if err := e.deps.OnCommand(ctx, ev, cmd); err != nil {
			return fmt.Errorf("command %s: %w", cmd.Name, err)
		}
		return nil
	}

	e.density.Record(ev.ChannelID, ev.AuthorID, ev.FromBot)

	if !e.decision.ShouldReply(ev.ChannelID, ev.Text, ev.FromBot) {
		span.SetAttributes(attribute.String("outcome", "no_reply"))
		slog.Debug("reply decision: no", "channel_id", ev.ChannelID, "event", ev.ID)
		return nil
	}

	start := e.now()
	content, err := e.generate(ctx, providers.TaskSemantic, ev.Text, map[string]string{
		"channel":  ev.Channel,
		"event_id": ev.ID,
	})
	if err != nil {
		span.SetAttributes(attribute.String("outcome", "generation_error"))
		return err
	}
	if content == "" {
		span.SetAttributes(attribute.String("outcome", "empty_reply"))
		return nil
	}

	if e.dupes.IsDuplicate(ev.ChannelID, content) {
		span.SetAttributes(attribute.String("outcome", "duplicate"))
		slog.Debug("duplicate reply suppressed", "channel_id", ev.ChannelID, "event", ev.ID)
		return nil
	}

	span.SetAttributes(attribute.String("outcome", "scheduled"))
	e.scheduleReply(ev.Channel, ev.ChannelID, content, e.now().Sub(start))
	return nil
}

// HandleIdle generates and schedules an unprompted message for a channel,
// sharing the reply pipeline tail (dedupe, scheduler, bookkeeping) with
// inbound handling.
func (e *Engine) HandleIdle(ctx context.Context, channel, channelID, prompt string) error {
	release, ok := e.locks.TryAcquire(channelID, e.lockBot())
	if !ok {
		slog.Debug("channel busy, skipping idle message", "channel_id", channelID)
		return nil
	}
	defer release()

	start := e.now()
	content, err := e.generate(ctx, providers.TaskIdle, prompt, map[string]string{"channel": channel})
	if err != nil {
		return err
	}
	if content == "" || e.dupes.IsDuplicate(channelID, content) {
		return nil
	}
	e.scheduleReply(channel, channelID, content, e.now().Sub(start))
	return nil
}

// generate selects a provider for the task and produces the reply content.
func (e *Engine) generate(ctx context.Context, task providers.Task, text string, meta map[string]string) (string, error) {
	sel, err := e.deps.TaskRouter.GetTaskLLM(task, e.deps.Fallback(), meta)
	if err != nil {
		return "", fmt.Errorf("select provider for %s: %w", string(task), err)
	}

	resp, err := sel.Provider.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{{Role: "user", Content: text}},
		Model:    sel.Metadata["model"],
	})
	if err != nil {
		return "", fmt.Errorf("generate via %s: %w", sel.Provider.Name(), err)
	}
	return resp.Content, nil
}

// scheduleReply arms the delayed transmission and performs post-send
// bookkeeping once it actually fires. A cancelled send leaves no trace in
// the duplicate history or fatigue score.
func (e *Engine) scheduleReply(channel, channelID, content string, processing time.Duration) {
	e.scheduler.ScheduleSend(channelID, content, processing, func(body string) {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := e.deps.Sender.SendMessageToChannel(sendCtx, bus.OutboundMessage{
			Channel:   channel,
			ChannelID: channelID,
			Content:   body,
		})
		if err != nil {
			slog.Warn("send failed", "channel", channel, "channel_id", channelID, "error", err)
			return
		}

		e.dupes.Record(channelID, body)
		e.fatigue.RecordActivity(e.deps.BotID, 1.0)
		e.density.Record(channelID, "", true)
	})
}
