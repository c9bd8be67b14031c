package jobs

import (
	"fmt"
	"sync"
	"time"
)

// Definition describes a schedulable job: metadata only, no execution. The
// worker's scheduler pairs definitions with run functions at startup.
type Definition struct {
	Name        string
	Description string
	CronSpec    string
	LockTTL     time.Duration
}

// Registry is the process-wide catalog of schedulable job definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("job definition name is empty")
	}
	if def.CronSpec == "" {
		return fmt.Errorf("job definition %q has no cron spec", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("job definition already registered for name=%s", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	return out
}
