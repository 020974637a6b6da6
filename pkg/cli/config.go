package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dshills/llmflow/pkg/models"
	"github.com/dshills/llmflow/pkg/storage"
	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// Config is the content of <config-dir>/config.yaml
type Config struct {
	Version   string            `yaml:"version"`
	Registry  RegistryConfig    `yaml:"registry"`
	Editor    EditorConfig      `yaml:"editor"`
	Providers []models.Provider `yaml:"providers,omitempty"`
}

// RegistryConfig selects the model registry database
type RegistryConfig struct {
	Driver string `yaml:"driver"`
	// DSN is a MySQL DSN or a SQLite file path. An empty DSN with the
	// sqlite driver uses <config-dir>/llmflow.db.
	DSN string `yaml:"dsn,omitempty"`
}

// EditorConfig holds terminal canvas settings
type EditorConfig struct {
	ScaleX float64 `yaml:"scale_x"`
	ScaleY float64 `yaml:"scale_y"`
}

// DefaultConfig returns the configuration written on first run
func DefaultConfig() *Config {
	return &Config{
		Version:  "1.0",
		Registry: RegistryConfig{Driver: string(storage.DriverSQLite)},
		Editor:   EditorConfig{ScaleX: 10, ScaleY: 25},
	}
}

// initConfig creates the config directory and a default config file if
// missing, then loads the file
func initConfig(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "workflows"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create workflows directory: %w", err)
	}

	path := filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		data, err := yaml.Marshal(DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	return LoadConfig(path)
}

// LoadConfig reads a config file. Missing keys take their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	driver, err := storage.ParseDriver(cfg.Registry.Driver)
	if err != nil {
		return nil, err
	}
	if driver == storage.DriverMySQL && cfg.Registry.DSN == "" {
		return nil, errors.New("registry.dsn is required for the mysql driver")
	}
	for i, p := range cfg.Providers {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
	}
	return cfg, nil
}

// DatabaseDSN returns the registry DSN for the configured driver
func (c *Config) DatabaseDSN(configDir string) string {
	if c.Registry.DSN != "" {
		return c.Registry.DSN
	}
	return filepath.Join(configDir, storage.DefaultDatabaseName)
}
