// Package server provides a factory for creating the MCP server.
package server

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-prospect-research/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

// New creates the MCP server and the platform behind it from cfg.
func New(cfg *platform.Config, opts ...platform.Option) (*mcp.Server, *platform.Platform, error) {
	if cfg.Server.Version == "" {
		cfg.Server.Version = Version
	}

	p, err := platform.New(append([]platform.Option{platform.WithConfig(cfg)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating platform: %w", err)
	}
	return p.MCPServer(), p, nil
}

// NewWithConfig creates the MCP server from a configuration file.
func NewWithConfig(path string, opts ...platform.Option) (*mcp.Server, *platform.Platform, error) {
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	return New(cfg, opts...)
}

// NewWithDefaults creates the MCP server from the built-in configuration,
// reading the API key from the environment.
func NewWithDefaults(opts ...platform.Option) (*mcp.Server, *platform.Platform, error) {
	return New(platform.DefaultConfig(), opts...)
}
