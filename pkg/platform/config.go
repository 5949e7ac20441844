// Package platform wires the research server together: configuration, the
// gateway client, the session data store, the research session manager and
// the MCP toolkits.
package platform

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/mcp-prospect-research/pkg/gateway"
	"github.com/txn2/mcp-prospect-research/pkg/registry"
	"github.com/txn2/mcp-prospect-research/pkg/research"
	"github.com/txn2/mcp-prospect-research/pkg/research/snapshot"
	"github.com/txn2/mcp-prospect-research/pkg/session/sqlite"
)

// APIKeyEnv is the environment variable holding the upstream API key.
const APIKeyEnv = "EXPLORIUM_API_KEY"

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Research session persistence backends.
const (
	PersistenceFile = "file"
	PersistenceBlob = "blob"
	PersistenceNone = "none"
)

// Session data store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Upstream bulk limits. Batch sizes above these are rejected by the API.
const (
	maxEnrichBatch = 50
	maxMatchBatch  = 50
	maxEventsBatch = 20
)

// Config holds the complete server configuration.
type Config struct {
	Server   ServerConfig                          `yaml:"server"`
	Gateway  GatewayConfig                         `yaml:"gateway"`
	Research ResearchConfig                        `yaml:"research"`
	Storage  StorageConfig                         `yaml:"storage"`
	Toolkits map[string]registry.ToolkitKindConfig `yaml:"toolkits"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"` // defaults to the build version
	Transport string `yaml:"transport"` // "stdio", "http"
	Address   string `yaml:"address"`
}

// GatewayConfig configures the remote data API client.
type GatewayConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Timeout        time.Duration `yaml:"timeout"`
	EventsTimeout  time.Duration `yaml:"events_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// ResearchConfig configures the research session manager.
type ResearchConfig struct {
	SessionTTL      time.Duration     `yaml:"session_ttl"`
	SampleSize      int               `yaml:"sample_size"`
	EnrichBatchSize int               `yaml:"enrich_batch_size"`
	EventsBatchSize int               `yaml:"events_batch_size"`
	MatchBatchSize  int               `yaml:"match_batch_size"`
	Persistence     PersistenceConfig `yaml:"persistence"`
}

// PersistenceConfig selects where research sessions are flushed.
type PersistenceConfig struct {
	Backend string `yaml:"backend"` // "file", "blob", "none"
	Path    string `yaml:"path"`
}

// StorageConfig configures the keyed session data store.
type StorageConfig struct {
	Driver       string `yaml:"driver"` // "memory", "sqlite", "postgres"
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expanding ${VAR} references and
// applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the configuration used when no file is given. The
// API key is read from the environment.
func DefaultConfig() *Config {
	cfg := &Config{
		Gateway: GatewayConfig{APIKey: os.Getenv(APIKeyEnv)},
	}
	applyDefaults(cfg)
	return cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "mcp-prospect-research"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = gateway.DefaultBaseURL
	}

	applyResearchDefaults(&cfg.Research)

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.DSN == "" && cfg.Storage.Driver == DriverSQLite {
		cfg.Storage.DSN = sqlite.DefaultPath
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = 25
	}

	if cfg.Toolkits == nil {
		cfg.Toolkits = map[string]registry.ToolkitKindConfig{
			registry.KindResearch: {Enabled: true},
		}
	}
}

func applyResearchDefaults(r *ResearchConfig) {
	if r.SessionTTL == 0 {
		r.SessionTTL = research.DefaultTTL
	}
	if r.SampleSize == 0 {
		r.SampleSize = research.DefaultSampleSize
	}
	if r.EnrichBatchSize == 0 {
		r.EnrichBatchSize = research.DefaultEnrichBatchSize
	}
	if r.EventsBatchSize == 0 {
		r.EventsBatchSize = research.DefaultEventsBatchSize
	}
	if r.MatchBatchSize == 0 {
		r.MatchBatchSize = research.DefaultMatchBatchSize
	}
	if r.Persistence.Backend == "" {
		r.Persistence.Backend = PersistenceFile
	}
	if r.Persistence.Path == "" && r.Persistence.Backend == PersistenceFile {
		r.Persistence.Path = snapshot.DefaultPath
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.APIKey == "" {
		errs = append(errs, "gateway.api_key is required (set "+APIKeyEnv+")")
	}
	if c.Gateway.MaxRetries < 0 {
		errs = append(errs, "gateway.max_retries must not be negative")
	}

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Sprintf("server.transport %q is not one of stdio, http", c.Server.Transport))
	}

	errs = append(errs, c.Research.validate()...)

	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, "storage.dsn is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.driver %q is not one of memory, sqlite, postgres", c.Storage.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	if c.Research.Persistence.Backend == PersistenceBlob && c.Storage.Driver == DriverMemory {
		slog.Warn("research sessions are persisted to the in-memory store and will not survive a restart")
	}
	return nil
}

func (r *ResearchConfig) validate() []string {
	var errs []string

	if r.SessionTTL < 0 {
		errs = append(errs, "research.session_ttl must not be negative")
	}
	if r.SampleSize < 0 {
		errs = append(errs, "research.sample_size must not be negative")
	}
	errs = append(errs, checkBatch("research.enrich_batch_size", r.EnrichBatchSize, maxEnrichBatch)...)
	errs = append(errs, checkBatch("research.events_batch_size", r.EventsBatchSize, maxEventsBatch)...)
	errs = append(errs, checkBatch("research.match_batch_size", r.MatchBatchSize, maxMatchBatch)...)

	switch r.Persistence.Backend {
	case PersistenceFile:
		if r.Persistence.Path == "" {
			errs = append(errs, "research.persistence.path is required for the file backend")
		}
	case PersistenceBlob, PersistenceNone:
	default:
		errs = append(errs, fmt.Sprintf("research.persistence.backend %q is not one of file, blob, none", r.Persistence.Backend))
	}
	return errs
}

func checkBatch(name string, v, limit int) []string {
	if v < 1 || v > limit {
		return []string{fmt.Sprintf("%s must be between 1 and %d, got %d", name, limit, v)}
	}
	return nil
}
