package countdown

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrDuplicateTimer is returned when a timer id is already registered.
var ErrDuplicateTimer = errors.New("duplicate timer id")

// NewID returns an identifier for a timer configured without one.
func NewID() string {
	return "timer_" + uuid.NewString()
}

// Registry maps timer ids to engines.
type Registry struct {
	mu     sync.RWMutex
	timers map[string]*Engine
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{timers: make(map[string]*Engine)}
}

// Add registers e under its id.
func (r *Registry) Add(e *Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.timers[e.ID()]; ok {
		return fmt.Errorf("add %q: %w", e.ID(), ErrDuplicateTimer)
	}
	r.timers[e.ID()] = e
	return nil
}

// Get looks up a timer.
func (r *Registry) Get(id string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.timers[id]
	return e, ok
}

// Remove unregisters and closes a timer.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.timers[id]
	delete(r.timers, id)
	r.mu.Unlock()
	if ok {
		e.Close()
	}
	return ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.timers))
	for id := range r.timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered timers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.timers)
}

// Close closes and removes every timer.
func (r *Registry) Close() {
	r.mu.Lock()
	timers := r.timers
	r.timers = make(map[string]*Engine)
	r.mu.Unlock()
	for _, e := range timers {
		e.Close()
	}
}
