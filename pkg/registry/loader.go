package registry

import (
	"fmt"
	"slices"
)

// DefaultInstanceName names a toolkit instance when config gives none.
const DefaultInstanceName = "default"

// ToolkitKindConfig enables one toolkit kind.
type ToolkitKindConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// Loader creates the enabled toolkits through the registry's factories.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new toolkit loader.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// Load creates every enabled toolkit, in kind order.
func (l *Loader) Load(toolkits map[string]ToolkitKindConfig, deps Deps) error {
	kinds := make([]string, 0, len(toolkits))
	for kind := range toolkits {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)

	for _, kind := range kinds {
		kindCfg := toolkits[kind]
		if !kindCfg.Enabled {
			continue
		}
		name := kindCfg.Name
		if name == "" {
			name = DefaultInstanceName
		}
		if err := l.registry.CreateAndRegister(ToolkitConfig{Kind: kind, Name: name}, deps); err != nil {
			return fmt.Errorf("loading toolkit %s/%s: %w", kind, name, err)
		}
	}
	return nil
}
