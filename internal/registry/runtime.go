package registry

import (
	"fmt"
	"sync"

	"github.com/quantforge/fundcore/pkg/backtest"
)

// Runtime resolves a strategy ID to the backtest.Strategy implementation
// that provides its OnBar logic. Definitions are data (serialized to the
// registry file); OnBar is code, registered by the process that links in a
// strategy's package, so it never round-trips through JSON/YAML.
type Runtime struct {
	mu    sync.RWMutex
	impls map[string]backtest.Strategy
}

func NewRuntime() *Runtime {
	return &Runtime{impls: map[string]backtest.Strategy{}}
}

// Register binds id to its OnBar implementation. Re-registering the same id
// replaces the prior binding.
func (r *Runtime) Register(id string, impl backtest.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.impls[id] = impl
}

// Resolve returns the registered implementation for id.
func (r *Runtime) Resolve(id string) (backtest.Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.impls[id]
	if !ok {
		return nil, fmt.Errorf("registry: no runtime implementation registered for strategy %q", id)
	}
	return impl, nil
}

// IDs returns every strategy ID with a registered implementation.
func (r *Runtime) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.impls))
	for id := range r.impls {
		out = append(out, id)
	}
	return out
}
