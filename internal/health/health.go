// Package health aggregates liveness checks for the API's backing services.
// The server registers one checker per dependency (the Postgres store when
// configured) and the /health endpoint reports the combined result.
package health

import (
	"context"
	"sync"
)

// Status is the outcome of a single dependency check.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Ok reports a passing check for the named dependency.
func Ok(name string) Status {
	return Status{Name: name, Healthy: true}
}

// Fail reports a failing check with the underlying error text.
func Fail(name string, err error) Status {
	return Status{Name: name, Healthy: false, Detail: err.Error()}
}

// Checker probes one dependency. It must honor ctx cancellation.
type Checker func(ctx context.Context) Status

// Registry collects checkers and runs them when the health endpoint asks.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

type entry struct {
	name  string
	check Checker
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a checker under the given dependency name. Checkers run in
// registration order.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{name: name, check: check})
}

// CheckAll runs every registered checker. The aggregate is healthy only when
// all dependencies pass.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, 0, len(entries))
	for _, e := range entries {
		st := e.check(ctx)
		if !st.Healthy {
			healthy = false
		}
		statuses = append(statuses, st)
	}
	return healthy, statuses
}
