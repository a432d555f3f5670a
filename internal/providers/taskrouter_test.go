package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/natterhub/natter/internal/config"
)

type stubProvider struct{ name string }

func (p *stubProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Content: "stub"}, nil
}
func (p *stubProvider) DefaultModel() string { return "stub-model" }
func (p *stubProvider) Name() string         { return p.name }

func routerWithOverrides(r *Registry, overrides map[string]*config.TaskOverride) *TaskRouter {
	return NewTaskRouter(r, func(task string) *config.TaskOverride {
		return overrides[task]
	})
}

func TestGetTaskLLM_DefaultFallback(t *testing.T) {
	router := routerWithOverrides(NewRegistry(), nil)
	fallback := []Provider{&stubProvider{name: "first"}, &stubProvider{name: "second"}}

	sel, err := router.GetTaskLLM(TaskSummary, fallback, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("GetTaskLLM: %v", err)
	}
	if sel.Provider.Name() != "first" {
		t.Errorf("provider = %q, want first of fallback", sel.Provider.Name())
	}
	if sel.Source != SourceDefault {
		t.Errorf("source = %q, want %q", sel.Source, SourceDefault)
	}
	if sel.Metadata["k"] != "v" {
		t.Error("base metadata should carry through")
	}
}

func TestGetTaskLLM_NoProviders(t *testing.T) {
	router := routerWithOverrides(NewRegistry(), nil)

	_, err := router.GetTaskLLM(TaskSemantic, nil, nil)
	if !errors.Is(err, ErrNoProviders) {
		t.Errorf("err = %v, want ErrNoProviders", err)
	}
}

func TestGetTaskLLM_ProviderOverride(t *testing.T) {
	reg := NewRegistry()
	reg.Register(config.ProviderInstance{ID: "id-1", Name: "special", Type: "openai", APIKey: "k"})

	router := routerWithOverrides(reg, map[string]*config.TaskOverride{
		"summary": {Provider: "special"},
	})

	sel, err := router.GetTaskLLM(TaskSummary, []Provider{&stubProvider{name: "fb"}}, nil)
	if err != nil {
		t.Fatalf("GetTaskLLM: %v", err)
	}
	if sel.Source != SourceOverride {
		t.Errorf("source = %q, want %q", sel.Source, SourceOverride)
	}
	if sel.Provider.Name() != "special" {
		t.Errorf("provider = %q, want override", sel.Provider.Name())
	}
}

func TestGetTaskLLM_UnresolvedOverrideFallsBack(t *testing.T) {
	router := routerWithOverrides(NewRegistry(), map[string]*config.TaskOverride{
		"idle": {Provider: "ghost"},
	})

	sel, err := router.GetTaskLLM(TaskIdle, []Provider{&stubProvider{name: "fb"}}, nil)
	if err != nil {
		t.Fatalf("GetTaskLLM: %v", err)
	}
	if sel.Provider.Name() != "fb" || sel.Source != SourceDefault {
		t.Errorf("unresolved override should degrade to fallback, got %q/%q", sel.Provider.Name(), sel.Source)
	}
}

func TestGetTaskLLM_BrokenOverrideFallsBack(t *testing.T) {
	reg := NewRegistry()
	// Instance resolves but cannot instantiate (no API key).
	reg.Register(config.ProviderInstance{ID: "id-1", Name: "broken", Type: "openai"})

	router := routerWithOverrides(reg, map[string]*config.TaskOverride{
		"semantic": {Provider: "broken"},
	})

	sel, err := router.GetTaskLLM(TaskSemantic, []Provider{&stubProvider{name: "fb"}}, nil)
	if err != nil {
		t.Fatalf("GetTaskLLM: %v", err)
	}
	if sel.Provider.Name() != "fb" || sel.Source != SourceDefault {
		t.Errorf("broken override should degrade to fallback, got %q/%q", sel.Provider.Name(), sel.Source)
	}
}

func TestGetTaskLLM_ModelOverrideAttachesRegardless(t *testing.T) {
	// Model override applies even when the provider reference is unresolvable.
	router := routerWithOverrides(NewRegistry(), map[string]*config.TaskOverride{
		"followup": {Provider: "ghost", Model: "special-model"},
	})

	sel, err := router.GetTaskLLM(TaskFollowup, []Provider{&stubProvider{name: "fb"}}, nil)
	if err != nil {
		t.Fatalf("GetTaskLLM: %v", err)
	}
	if sel.Metadata["model"] != "special-model" {
		t.Errorf("metadata model = %q, want special-model", sel.Metadata["model"])
	}
}
