package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Registry manages toolkit registration and lifecycle. Toolkits keep their
// registration order.
type Registry struct {
	mu sync.RWMutex

	// Registered toolkits in registration order
	toolkits []Toolkit

	// Tool name to owning toolkit key
	tools map[string]string

	// Factory functions by kind
	factories map[string]ToolkitFactory
}

// NewRegistry creates a new toolkit registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]string),
		factories: make(map[string]ToolkitFactory),
	}
}

// RegisterFactory registers a toolkit factory for a kind.
func (r *Registry) RegisterFactory(kind string, factory ToolkitFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Register adds a toolkit. A toolkit whose kind and name, or any of whose
// tool names, are already registered is rejected.
func (r *Registry) Register(toolkit Toolkit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := toolkitKey(toolkit.Kind(), toolkit.Name())
	for _, existing := range r.toolkits {
		if toolkitKey(existing.Kind(), existing.Name()) == key {
			return fmt.Errorf("toolkit %s already registered", key)
		}
	}
	for _, tool := range toolkit.Tools() {
		if owner, taken := r.tools[tool]; taken {
			return fmt.Errorf("toolkit %s: tool %q already provided by %s", key, tool, owner)
		}
	}

	for _, tool := range toolkit.Tools() {
		r.tools[tool] = key
	}
	r.toolkits = append(r.toolkits, toolkit)
	return nil
}

// CreateAndRegister creates a toolkit from config and registers it.
func (r *Registry) CreateAndRegister(cfg ToolkitConfig, deps Deps) error {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown toolkit kind: %s", cfg.Kind)
	}

	toolkit, err := factory(cfg.Name, deps)
	if err != nil {
		return fmt.Errorf("creating toolkit %s/%s: %w", cfg.Kind, cfg.Name, err)
	}

	if err := r.Register(toolkit); err != nil {
		_ = toolkit.Close()
		return err
	}
	slog.Debug("toolkit registered", "kind", cfg.Kind, "name", cfg.Name, "tools", len(toolkit.Tools()))
	return nil
}

// Get retrieves a toolkit by kind and name.
func (r *Registry) Get(kind, name string) (Toolkit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := toolkitKey(kind, name)
	for _, toolkit := range r.toolkits {
		if toolkitKey(toolkit.Kind(), toolkit.Name()) == key {
			return toolkit, true
		}
	}
	return nil, false
}

// All returns all registered toolkits in registration order.
func (r *Registry) All() []Toolkit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Toolkit(nil), r.toolkits...)
}

// AllTools returns all tool names from all toolkits.
func (r *Registry) AllTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]string, 0, len(r.tools))
	for _, toolkit := range r.toolkits {
		tools = append(tools, toolkit.Tools()...)
	}
	return tools
}

// GetToolkitForTool returns the kind and name of the toolkit providing a tool.
func (r *Registry) GetToolkitForTool(toolName string) (kind, name string, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, toolkit := range r.toolkits {
		for _, tool := range toolkit.Tools() {
			if tool == toolName {
				return toolkit.Kind(), toolkit.Name(), true
			}
		}
	}
	return "", "", false
}

// RegisterAllTools registers all tools from all toolkits with the MCP server.
func (r *Registry) RegisterAllTools(s *mcp.Server) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, toolkit := range r.toolkits {
		toolkit.RegisterTools(s)
	}
}

// Close closes all registered toolkits.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, toolkit := range r.toolkits {
		if err := toolkit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", toolkitKey(toolkit.Kind(), toolkit.Name()), err))
		}
	}
	return errors.Join(errs...)
}

func toolkitKey(kind, name string) string {
	return kind + ":" + name
}
