// Package health provides readiness state tracking and HTTP health check
// handlers for the HTTP transport.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// dependencyTimeout bounds each dependency check during a readiness check.
const dependencyTimeout = 2 * time.Second

// State constants for the readiness state machine.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// Dependency reports whether a dependency is usable.
type Dependency func(ctx context.Context) error

// Checker tracks the readiness state of the server and the dependencies it
// needs to serve tool calls. It is safe for concurrent use.
type Checker struct {
	state atomic.Int32

	mu    sync.RWMutex
	names []string
	deps  map[string]Dependency
}

// NewChecker creates a Checker in the Starting state.
func NewChecker() *Checker {
	return &Checker{deps: make(map[string]Dependency)}
}

// AddDependency registers a dependency check run on every readiness check.
// A dependency registered twice under the same name replaces the first.
func (c *Checker) AddDependency(name string, p Dependency) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.deps[name]; !exists {
		c.names = append(c.names, name)
	}
	c.deps[name] = p
}

// SetReady transitions to the Ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the Draining state.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady returns true when the state is Ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// Check runs every dependency and returns the failures keyed by dependency name.
func (c *Checker) Check(ctx context.Context) map[string]string {
	c.mu.RLock()
	names := append([]string(nil), c.names...)
	deps := make(map[string]Dependency, len(c.deps))
	for k, v := range c.deps {
		deps[k] = v
	}
	c.mu.RUnlock()

	failures := make(map[string]string)
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, dependencyTimeout)
		err := deps[name](pctx)
		cancel()
		if err != nil {
			failures[name] = err.Error()
		}
	}
	return failures
}

// healthResponse is the JSON body returned by health endpoints.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns an http.HandlerFunc that always responds 200 OK.
// Use this for K8s liveness checks (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler returns an http.HandlerFunc that responds 200 when ready
// and every dependency passes, and 503 otherwise.
// Use this for K8s readiness checks (/readyz).
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: c.State()})
			return
		}
		if failures := c.Check(r.Context()); len(failures) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Checks: failures})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: c.State()})
	}
}

func writeJSON(w http.ResponseWriter, code int, v healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
