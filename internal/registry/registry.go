// Package registry maps model names to backends.
//
// A Registry is filled during startup and then sealed. After Seal it is
// read-only and safe for concurrent use without further coordination by
// callers.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"oaigate/internal/backend"
	"oaigate/pkg/types"
)

// ErrSealed is returned by Register once the registry has been sealed.
var ErrSealed = errors.New("registry is sealed")

type entry struct {
	name string
	b    backend.Backend
}

// Registry is an insertion-ordered map of model name to backend.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int
	sealed  bool
}

func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register binds name to b. Surrounding whitespace in name is ignored here
// and in every lookup. Registering an existing name replaces its backend
// and keeps its position in listings. The same backend instance may not be
// bound to two different names.
func (r *Registry) Register(name string, b backend.Backend) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("register: empty model name")
	}
	if b == nil {
		return fmt.Errorf("register %q: nil backend", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("register %q: %w", name, ErrSealed)
	}
	if reflect.TypeOf(b).Comparable() {
		for _, e := range r.entries {
			if e.name != name && reflect.TypeOf(e.b) == reflect.TypeOf(b) && e.b == b {
				return fmt.Errorf("register %q: backend already registered as %q", name, e.name)
			}
		}
	}
	if i, ok := r.index[name]; ok {
		r.entries[i].b = b
		return nil
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, entry{name: name, b: b})
	return nil
}

// Seal ends the registration phase.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Resolve returns the backend registered under name.
func (r *Registry) Resolve(name string) (backend.Backend, error) {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, backend.ErrUnknownModel(name)
	}
	return r.entries[i].b, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[name]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns one model descriptor per registered name, in registration
// order. The id is the registered name; ownership and creation time come
// from the backend identity.
func (r *Registry) List() []types.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Model, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, describe(e.name, e.b))
	}
	return out
}

// Describe returns the descriptor for a single model name.
func (r *Registry) Describe(name string) (types.Model, error) {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return types.Model{}, backend.ErrUnknownModel(name)
	}
	return describe(name, r.entries[i].b), nil
}

func describe(name string, b backend.Backend) types.Model {
	id := b.Identity()
	root := id.ID
	if root == "" {
		root = name
	}
	return types.NewModel(name, id.OwnedBy, id.Created, root)
}
