package providers

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/natterhub/natter/internal/config"
)

// Instance is a registered completion backend: the configuration-owned
// descriptor plus a lazily built client. The descriptor is read-only to the
// router.
type Instance struct {
	ID      string
	Name    string
	Type    string
	Enabled bool

	cfg config.ProviderInstance

	mu       sync.Mutex
	provider Provider
	buildErr error
	built    bool
}

// Provider builds (once) and returns the client for this instance.
func (i *Instance) Provider() (Provider, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.built {
		i.provider, i.buildErr = buildProvider(i.cfg)
		i.built = true
	}
	return i.provider, i.buildErr
}

func buildProvider(cfg config.ProviderInstance) (Provider, error) {
	switch cfg.Type {
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model)
	case "openai", "":
		return NewOpenAIProvider(cfg.Name, cfg.APIKey, cfg.APIBase, cfg.Model)
	default:
		return nil, fmt.Errorf("provider %s: unknown type %q", cfg.Name, cfg.Type)
	}
}

// Registry holds the configured provider instances.
type Registry struct {
	mu        sync.RWMutex
	instances []*Instance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an instance from config, assigning an id when absent.
func (r *Registry) Register(cfg config.ProviderInstance) *Instance {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	inst := &Instance{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Type:    cfg.Type,
		Enabled: cfg.IsEnabled(),
		cfg:     cfg,
	}
	r.mu.Lock()
	r.instances = append(r.instances, inst)
	r.mu.Unlock()
	return inst
}

// Enabled returns all enabled instances in registration order.
func (r *Registry) Enabled() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		if inst.Enabled {
			out = append(out, inst)
		}
	}
	return out
}

// Resolve finds an enabled instance by, in order: exact id match, exact name
// match (case-insensitive), then type match. First match wins.
func (r *Registry) Resolve(ref string) (*Instance, bool) {
	enabled := r.Enabled()
	for _, inst := range enabled {
		if inst.ID == ref {
			return inst, true
		}
	}
	for _, inst := range enabled {
		if strings.EqualFold(inst.Name, ref) {
			return inst, true
		}
	}
	for _, inst := range enabled {
		if inst.Type == ref {
			return inst, true
		}
	}
	return nil, false
}
