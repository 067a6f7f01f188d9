package exchange

import (
	"fmt"
	"sort"
	"sync"

	"nakula/pkg/core"
)

// Factory builds an Exchange from a validated config.
type Factory func(cfg *core.Config) (Exchange, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a venue implementation available to New. Venue packages
// call it from init; registering the same name twice panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("exchange: Register called twice for %q", name))
	}
	registry[name] = factory
}

// New builds the named exchange. The venue package must be imported for
// its registration side effect:
//
//	import _ "nakula/pkg/exchange/p2b"
func New(name string, cfg *core.Config) (Exchange, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("exchange: unknown venue %q (forgot to import its package?)", name)
	}
	if cfg == nil {
		cfg = core.DefaultConfig(name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("exchange: invalid config: %w", err)
	}
	return factory(cfg)
}

// Registered returns the registered venue names, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
