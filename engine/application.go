package engine

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer"
	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
)

type ApplicationConfig struct {
	// The application name used in logs.
	Name string `toml:"name"`
	// One of debug, info, warn, error, fatal.
	LogLevel string `toml:"log_level"`
	// One of vulkan, virtual.
	Backend string `toml:"backend"`
	// Maximum number of live registry entries.
	MaxRegistryEntries uint32 `toml:"max_registry_entries"`
	// Descriptor allocator configuration.
	Descriptors descriptors.Config `toml:"descriptors"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:               "Astra",
		LogLevel:           "debug",
		Backend:            "virtual",
		MaxRegistryEntries: 1024,
		Descriptors:        *descriptors.DefaultConfig(),
	}
}

// LoadApplicationConfig reads a TOML config file, filling unset fields
// with defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("func LoadApplicationConfig - %w", err)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("func LoadApplicationConfig - %w", err)
	}
	return config, nil
}

func (c *ApplicationConfig) logLevel() core.LogLevel {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return core.DebugLevel
	case "info":
		return core.InfoLevel
	case "warn":
		return core.WarnLevel
	case "error":
		return core.ErrorLevel
	case "fatal":
		return core.FatalLevel
	}
	return core.InfoLevel
}

func (c *ApplicationConfig) backendType() (renderer.BackendType, error) {
	switch strings.ToLower(c.Backend) {
	case "", "virtual":
		return renderer.BackendTypeVirtual, nil
	case "vulkan":
		return renderer.BackendTypeVulkan, nil
	}
	return 0, fmt.Errorf("func ApplicationConfig.backendType - unknown backend '%s'", c.Backend)
}
