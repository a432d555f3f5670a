package providers

import (
	"errors"
	"log/slog"

	"github.com/natterhub/natter/internal/config"
)

// Task names a logical completion task the bot performs.
type Task string

// Logical tasks with independently overridable providers.
const (
	TaskSemantic Task = "semantic"
	TaskSummary  Task = "summary"
	TaskFollowup Task = "followup"
	TaskIdle     Task = "idle"
)

// Selection sources.
const (
	SourceDefault  = "default"
	SourceOverride = "override"
)

// ErrNoProviders is returned when neither an override nor any fallback
// provider is available. This is the only hard error the router surfaces.
var ErrNoProviders = errors.New("no providers configured")

// Selection is the router's output: the provider to invoke, request
// metadata, and whether an override or the default path chose it.
type Selection struct {
	Provider Provider
	Metadata map[string]string
	Source   string
}

// TaskRouter resolves which provider and model serve each logical task.
// Overrides come from configuration; resolution failures degrade to the
// caller's fallback list with a logged warning, never an error.
type TaskRouter struct {
	registry  *Registry
	overrides func(task string) *config.TaskOverride
}

// NewTaskRouter creates a router. overrides is re-read on every call so
// config reloads take effect.
func NewTaskRouter(registry *Registry, overrides func(task string) *config.TaskOverride) *TaskRouter {
	return &TaskRouter{registry: registry, overrides: overrides}
}

// GetTaskLLM selects the provider for a task. A configured provider
// reference is resolved against the enabled registry (id, then name, then
// type); if resolution or instantiation fails the router falls back to the
// first of fallback with source "default". A model override, when present,
// is attached to the metadata regardless of whether the provider override
// resolved.
func (r *TaskRouter) GetTaskLLM(task Task, fallback []Provider, baseMetadata map[string]string) (Selection, error) {
	metadata := make(map[string]string, len(baseMetadata)+1)
	for k, v := range baseMetadata {
		metadata[k] = v
	}

	ov := r.overrides(string(task))
	if ov != nil && ov.Model != "" {
		metadata["model"] = ov.Model
	}

	if ov != nil && ov.Provider != "" {
		if inst, ok := r.registry.Resolve(ov.Provider); ok {
			p, err := inst.Provider()
			if err == nil {
				return Selection{Provider: p, Metadata: metadata, Source: SourceOverride}, nil
			}
			slog.Warn("task provider override failed to instantiate, using default",
				"task", string(task), "provider", ov.Provider, "error", err)
		} else {
			slog.Warn("task provider override not found, using default",
				"task", string(task), "provider", ov.Provider)
		}
	}

	if len(fallback) == 0 {
		return Selection{}, ErrNoProviders
	}
	return Selection{Provider: fallback[0], Metadata: metadata, Source: SourceDefault}, nil
}
