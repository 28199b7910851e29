// Package registry creates command kinds by name and keeps user-registered
// prototypes under aliases.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/doeshing/shexec/internal/application/execution"
)

// Registry holds kind factories and aliased prototypes. Prototypes are stored
// and handed out as clones, so neither the registering caller nor a consumer
// can change what the next Get returns.
type Registry struct {
	mu         sync.RWMutex
	factories  map[string]func() execution.Command
	prototypes map[string]execution.Command
}

// New creates a registry over the given kind factories.
func New(factories map[string]func() execution.Command) *Registry {
	r := &Registry{
		factories:  make(map[string]func() execution.Command, len(factories)),
		prototypes: make(map[string]execution.Command),
	}
	for name, f := range factories {
		r.factories[name] = f
	}
	return r
}

// Create builds a fresh command of kind name.
func (r *Registry) Create(name string) (execution.Command, bool) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(), true
}

// Kinds lists creatable kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.factories)
}

// Register stores a clone of proto under alias, replacing any previous one.
func (r *Registry) Register(alias string, proto execution.Command) error {
	if strings.TrimSpace(alias) == "" {
		return fmt.Errorf("register: alias is required")
	}
	if proto == nil {
		return fmt.Errorf("register %q: prototype is nil", alias)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prototypes[alias] = proto.Clone()
	return nil
}

// Get returns a clone of the prototype registered under alias.
func (r *Registry) Get(alias string) (execution.Command, bool) {
	r.mu.RLock()
	proto, ok := r.prototypes[alias]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return proto.Clone(), true
}

// Aliases lists registered aliases, sorted.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.prototypes)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
