package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/txn2/mcp-prospect-research/pkg/gateway"
	"github.com/txn2/mcp-prospect-research/pkg/health"
	"github.com/txn2/mcp-prospect-research/pkg/middleware"
	"github.com/txn2/mcp-prospect-research/pkg/registry"
	"github.com/txn2/mcp-prospect-research/pkg/research"
	"github.com/txn2/mcp-prospect-research/pkg/research/snapshot"
	"github.com/txn2/mcp-prospect-research/pkg/session"
	"github.com/txn2/mcp-prospect-research/pkg/session/postgres"
	"github.com/txn2/mcp-prospect-research/pkg/session/sqlite"
)

// storeOpenTimeout bounds connecting to and migrating the session data store.
const storeOpenTimeout = 30 * time.Second

// HTTP routes served by Handler.
const (
	RouteMCP     = "/mcp"
	RouteHealthz = "/healthz"
	RouteReadyz  = "/readyz"
	RouteMetrics = "/metrics"
)

// Platform is the main platform facade.
type Platform struct {
	config *Config

	// Core components
	mcpServer *mcp.Server
	lifecycle *Lifecycle
	health    *health.Checker

	// Collaborators
	gateway *gateway.Client
	store   session.Store
	manager *research.Manager

	toolkitRegistry *registry.Registry
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{
		config:    options.Config,
		lifecycle: NewLifecycle(),
		health:    health.NewChecker(),
	}

	if err := p.initializeComponents(options); err != nil {
		_ = p.closeResources(context.Background())
		return nil, fmt.Errorf("initializing components: %w", err)
	}

	return p, nil
}

// initializeComponents initializes all platform components.
func (p *Platform) initializeComponents(opts *Options) error {
	var err error
	if p.gateway, err = p.createGateway(opts); err != nil {
		return fmt.Errorf("creating gateway client: %w", err)
	}
	if err := p.initStore(opts); err != nil {
		return err
	}
	if err := p.initManager(opts); err != nil {
		return err
	}
	if err := p.initRegistry(opts); err != nil {
		return err
	}
	p.finalizeSetup()
	return nil
}

func (p *Platform) createGateway(opts *Options) (*gateway.Client, error) {
	gc := p.config.Gateway
	return gateway.New(gateway.Config{
		BaseURL:        gc.BaseURL,
		APIKey:         gc.APIKey,
		Timeout:        gc.Timeout,
		EventsTimeout:  gc.EventsTimeout,
		MaxRetries:     gc.MaxRetries,
		InitialBackoff: gc.InitialBackoff,
		MaxBackoff:     gc.MaxBackoff,
		HTTPClient:     opts.HTTPClient,
	})
}

// initStore opens the session data store when something needs it.
func (p *Platform) initStore(opts *Options) error {
	if opts.Store != nil {
		p.store = opts.Store
		return nil
	}
	if !p.needsStore() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	defer cancel()

	store, err := openStore(ctx, p.config.Storage)
	if err != nil {
		return fmt.Errorf("opening session data store: %w", err)
	}
	p.store = store
	return nil
}

// needsStore reports whether blob persistence or a store-backed toolkit is
// configured.
func (p *Platform) needsStore() bool {
	if p.config.Research.Persistence.Backend == PersistenceBlob {
		return true
	}
	for _, kind := range []string{registry.KindBusinesses, registry.KindProspects, registry.KindSessionData} {
		if p.config.Toolkits[kind].Enabled {
			return true
		}
	}
	return false
}

func openStore(ctx context.Context, cfg StorageConfig) (session.Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return session.NewMemoryStore(), nil
	case DriverSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case DriverPostgres:
		return postgres.Open(ctx, postgres.Config{DSN: cfg.DSN, MaxOpenConns: cfg.MaxOpenConns})
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

func (p *Platform) initManager(opts *Options) error {
	persister := opts.Persister
	if persister == nil {
		var err error
		if persister, err = p.createPersister(); err != nil {
			return fmt.Errorf("creating research persister: %w", err)
		}
	}

	rc := p.config.Research
	managerOpts := []research.Option{
		research.WithPersister(persister),
		research.WithTTL(rc.SessionTTL),
		research.WithSampleSize(rc.SampleSize),
		research.WithBatchSizes(rc.EnrichBatchSize, rc.EventsBatchSize, rc.MatchBatchSize),
	}
	if opts.Clock != nil {
		managerOpts = append(managerOpts, research.WithClock(opts.Clock))
	}

	p.manager = research.NewManager(p.gateway, managerOpts...)
	return nil
}

func (p *Platform) createPersister() (research.Persister, error) {
	switch p.config.Research.Persistence.Backend {
	case PersistenceFile:
		return snapshot.New(p.config.Research.Persistence.Path), nil
	case PersistenceBlob:
		if p.store == nil {
			return nil, errors.New("blob persistence requires a session data store")
		}
		return session.NewResearchPersister(p.store), nil
	case PersistenceNone:
		return research.NopPersister{}, nil
	default:
		return nil, fmt.Errorf("unknown persistence backend: %s", p.config.Research.Persistence.Backend)
	}
}

func (p *Platform) initRegistry(opts *Options) error {
	if opts.ToolkitRegistry != nil {
		p.toolkitRegistry = opts.ToolkitRegistry
	} else {
		p.toolkitRegistry = registry.NewRegistry()
	}
	registry.RegisterBuiltinFactories(p.toolkitRegistry)

	deps := registry.Deps{
		Manager: p.manager,
		Gateway: p.gateway,
		Store:   p.store,
	}
	if err := registry.NewLoader(p.toolkitRegistry).Load(p.config.Toolkits, deps); err != nil {
		return fmt.Errorf("loading toolkits: %w", err)
	}
	return nil
}

// finalizeSetup creates the MCP server and registers lifecycle hooks.
func (p *Platform) finalizeSetup() {
	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: p.config.Server.Version,
	}, nil)
	p.mcpServer.AddReceivingMiddleware(middleware.MCPToolCallMiddleware())
	p.toolkitRegistry.RegisterAllTools(p.mcpServer)

	if p.store != nil {
		p.health.AddDependency("session_data_store", p.store.Ping)
	}

	p.lifecycle.OnStop("resources", p.closeResources)
	p.lifecycle.Append(Hook{
		Name:  "research sessions",
		Start: p.manager.Restore,
	})
	p.lifecycle.Append(Hook{
		Name: "readiness",
		Start: func(context.Context) error {
			p.health.SetReady()
			return nil
		},
		Stop: func(context.Context) error {
			p.health.SetDraining()
			return nil
		},
	})

	slog.Info("platform initialized",
		"toolkits", len(p.toolkitRegistry.All()),
		"tools", len(p.toolkitRegistry.AllTools()),
		"persistence", p.config.Research.Persistence.Backend,
		"store", p.store != nil,
	)
}

// closeResources closes the toolkits, then the session data store.
func (p *Platform) closeResources(_ context.Context) error {
	var errs []error
	if p.toolkitRegistry != nil {
		if err := p.toolkitRegistry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing toolkits: %w", err))
		}
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing session data store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Start restores persisted research sessions and marks the platform ready.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

// Stop drains the platform and releases its resources.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// Close releases resources whether or not the platform was started.
func (p *Platform) Close() error {
	if p.lifecycle.IsStarted() {
		return p.Stop(context.Background())
	}
	return p.closeResources(context.Background())
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Manager returns the research session manager.
func (p *Platform) Manager() *research.Manager {
	return p.manager
}

// Store returns the session data store, or nil when none is configured.
func (p *Platform) Store() session.Store {
	return p.store
}

// ToolkitRegistry returns the toolkit registry.
func (p *Platform) ToolkitRegistry() *registry.Registry {
	return p.toolkitRegistry
}

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker {
	return p.health
}

// Handler returns the HTTP handler for the http transport: the streamable
// MCP endpoint, health deps and Prometheus metrics.
func (p *Platform) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(RouteMCP, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return p.mcpServer
	}, nil))
	mux.Handle(RouteHealthz, p.health.LivenessHandler())
	mux.Handle(RouteReadyz, p.health.ReadinessHandler())
	mux.Handle(RouteMetrics, promhttp.Handler())
	return mux
}
