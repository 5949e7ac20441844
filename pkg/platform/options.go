package platform

import (
	"net/http"
	"time"

	"github.com/txn2/mcp-prospect-research/pkg/registry"
	"github.com/txn2/mcp-prospect-research/pkg/research"
	"github.com/txn2/mcp-prospect-research/pkg/session"
)

// Options configures the platform.
type Options struct {
	// Config is the platform configuration.
	Config *Config

	// Store (optional, will be opened from config if not provided).
	Store session.Store

	// Persister (optional, will be created from config if not provided).
	Persister research.Persister

	// ToolkitRegistry (optional, will be created if not provided).
	ToolkitRegistry *registry.Registry

	// HTTPClient (optional) is used by the gateway client.
	HTTPClient *http.Client

	// Clock (optional) drives session touch and expiry.
	Clock func() time.Time
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithStore sets the session data store.
func WithStore(s session.Store) Option {
	return func(o *Options) {
		o.Store = s
	}
}

// WithPersister sets the research session persister.
func WithPersister(p research.Persister) Option {
	return func(o *Options) {
		o.Persister = p
	}
}

// WithToolkitRegistry sets the toolkit registry.
func WithToolkitRegistry(reg *registry.Registry) Option {
	return func(o *Options) {
		o.ToolkitRegistry = reg
	}
}

// WithHTTPClient sets the HTTP client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}

// WithClock sets the clock used by the research session manager.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Clock = now
	}
}
