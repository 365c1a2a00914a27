// Package tasks provides a registry of named work kinds. The front-end
// enqueues work by kind instead of passing raw function references around,
// which keeps the vocabulary of background operations in one place.
package tasks

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artdept/pipeworks/internal/domain"
)

// Kind describes one registered work kind.
type Kind struct {
	Name        string
	Description string
	Fn          domain.Callable
}

// Registry maps kind names to callables. Registration is filtered by an
// allow-list ("*" allows everything).
type Registry struct {
	kinds   map[string]Kind
	allowed map[string]bool
	all     bool
	mu      sync.RWMutex
	log     zerolog.Logger
}

// NewRegistry creates a registry restricted to the given kinds.
func NewRegistry(log zerolog.Logger, allowedKinds []string) *Registry {
	r := &Registry{
		kinds:   make(map[string]Kind),
		allowed: make(map[string]bool),
		log:     log.With().Str("component", "tasks").Logger(),
	}
	for _, k := range allowedKinds {
		if k == "*" {
			r.all = true
			continue
		}
		r.allowed[k] = true
	}
	return r
}

// Register adds a work kind to the registry.
func (r *Registry) Register(name, description string, fn domain.Callable) error {
	if name == "" || fn == nil {
		return fmt.Errorf("cannot register empty kind or nil callable")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.all && !r.allowed[name] {
		return fmt.Errorf("kind %q is not allowed by configuration", name)
	}
	if _, exists := r.kinds[name]; exists {
		return fmt.Errorf("kind %q already registered", name)
	}

	r.kinds[name] = Kind{Name: name, Description: description, Fn: fn}
	r.log.Debug().Str("kind", name).Msg("work kind registered")
	return nil
}

// Resolve returns the callable registered under the given kind.
func (r *Registry) Resolve(name string) (domain.Callable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, exists := r.kinds[name]
	if !exists {
		return nil, fmt.Errorf("kind %q not found", name)
	}
	return kind.Fn, nil
}

// List returns the names of all registered kinds.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	return names
}
