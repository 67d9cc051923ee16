// Package registry provides the client registries authentication looks up trust anchors in.
package registry

import (
	"fmt"

	"github.com/darmiel/clientauth/internal/config"
	"github.com/darmiel/clientauth/internal/core"
)

// Build creates the registry selected by the configuration.
func Build(cfg *config.Config) (core.ClientRegistry, error) {
	switch cfg.Registry.Type {
	case config.RegistryTypeStatic, "":
		reg, err := NewStatic(cfg.Clients)
		if err != nil {
			return nil, err
		}
		return reg, nil
	case config.RegistryTypeFile:
		reg, err := NewFileFromOptions(cfg.Registry.Options)
		if err != nil {
			return nil, fmt.Errorf("building file registry: %w", err)
		}
		return reg, nil
	default:
		return nil, fmt.Errorf("unknown registry type %q", cfg.Registry.Type)
	}
}
