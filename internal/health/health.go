// Package health tracks the readiness of the components a request depends on.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Component names.
const (
	Store = "store"
	LLM   = "llm"
	Index = "index"
)

// Status represents the health of a component.
type Status struct {
	Healthy     bool      `json:"healthy"`
	LastCheck   time.Time `json:"last_check"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   error     `json:"-"`
	Message     string    `json:"message,omitempty"`
}

// Probe checks one component. A nil error means healthy and the returned
// message describes its state.
type Probe func(ctx context.Context) (string, error)

// Tracker records component health.
type Tracker struct {
	mu         sync.RWMutex
	components map[string]*Status
	probes     map[string]Probe
}

// NewTracker creates a new health tracker.
func NewTracker() *Tracker {
	return &Tracker{
		components: make(map[string]*Status),
		probes:     make(map[string]Probe),
	}
}

// Register adds a probe that Refresh runs for component.
func (t *Tracker) Register(component string, probe Probe) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probes[component] = probe
}

// Refresh runs every registered probe and records the results.
func (t *Tracker) Refresh(ctx context.Context) {
	t.mu.RLock()
	probes := make(map[string]Probe, len(t.probes))
	for name, p := range t.probes {
		probes[name] = p
	}
	t.mu.RUnlock()

	for name, probe := range probes {
		msg, err := probe(ctx)
		if err != nil {
			t.SetUnhealthy(name, err)
			continue
		}
		t.SetHealthy(name, msg)
	}
}

// SetHealthy marks a component as healthy.
func (t *Tracker) SetHealthy(component, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	s := t.status(component)
	s.Healthy = true
	s.LastCheck = now
	s.LastSuccess = now
	s.LastError = nil
	s.Message = message
}

// SetUnhealthy marks a component as unhealthy.
func (t *Tracker) SetUnhealthy(component string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.status(component)
	s.Healthy = false
	s.LastCheck = time.Now()
	s.LastError = err
	s.Message = err.Error()
}

// status must be called with mu held.
func (t *Tracker) status(component string) *Status {
	s, ok := t.components[component]
	if !ok {
		s = &Status{}
		t.components[component] = s
	}
	return s
}

// Get returns a copy of the status of a component, or nil if unknown.
func (t *Tracker) Get(component string) *Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if s, ok := t.components[component]; ok {
		cp := *s
		return &cp
	}
	return nil
}

// All returns copies of every component status.
func (t *Tracker) All() map[string]*Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]*Status, len(t.components))
	for name, s := range t.components {
		cp := *s
		result[name] = &cp
	}
	return result
}

// Names returns the known component names in sorted order.
func (t *Tracker) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.components))
	for name := range t.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Healthy returns true if all components are healthy.
func (t *Tracker) Healthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, s := range t.components {
		if !s.Healthy {
			return false
		}
	}
	return true
}
