package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Hook is one named component with optional start and stop callbacks.
type Hook struct {
	Name  string
	Start func(context.Context) error
	Stop  func(context.Context) error
}

// Lifecycle starts hooks in registration order and stops them in reverse.
type Lifecycle struct {
	mu sync.Mutex

	hooks   []Hook
	started int // number of hooks started, -1 before Start
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{started: -1}
}

// Append registers a hook.
func (l *Lifecycle) Append(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, h)
}

// OnStop registers a hook that only runs on shutdown.
func (l *Lifecycle) OnStop(name string, stop func(context.Context) error) {
	l.Append(Hook{Name: name, Stop: stop})
}

// RegisterCloser registers a closer to be closed on shutdown.
func (l *Lifecycle) RegisterCloser(name string, c interface{ Close() error }) {
	l.OnStop(name, func(_ context.Context) error {
		return c.Close()
	})
}

// Start runs every start callback. If one fails, the hooks already started
// are stopped in reverse order and the error is returned.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started >= 0 {
		return errors.New("lifecycle already started")
	}

	for i, h := range l.hooks {
		if h.Start == nil {
			continue
		}
		if err := h.Start(ctx); err != nil {
			l.stopFrom(ctx, i-1)
			return fmt.Errorf("starting %s: %w", h.Name, err)
		}
		slog.Debug("lifecycle hook started", "hook", h.Name)
	}

	l.started = len(l.hooks)
	return nil
}

// Stop runs every stop callback in reverse order. It is a no-op before
// Start.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started < 0 {
		return nil
	}
	err := l.stopFrom(ctx, l.started-1)
	l.started = -1
	return err
}

// IsStarted returns whether the lifecycle has been started.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started >= 0
}

// stopFrom stops hooks last..0. Callers hold l.mu.
func (l *Lifecycle) stopFrom(ctx context.Context, last int) error {
	var errs []error
	for i := last; i >= 0; i-- {
		h := l.hooks[i]
		if h.Stop == nil {
			continue
		}
		if err := h.Stop(ctx); err != nil {
			slog.Warn("lifecycle stop hook failed", "hook", h.Name, "error", err)
			errs = append(errs, fmt.Errorf("stopping %s: %w", h.Name, err))
		}
	}
	return errors.Join(errs...)
}
