// Package config loads the tool configuration from .qgen/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lexlabs/qgen/internal/assets"
)

// MaxParallelism is the hard cap on concurrent batches, regardless of
// what the config asks for.
const MaxParallelism = 4

// Config is the resolved tool configuration.
type Config struct {
	Engine      string
	Parallelism int
	OutputDir   string
	Commit      bool

	models map[string]string
}

// rawConfig is used for YAML unmarshaling to distinguish missing keys
// from explicit zero values.
type rawConfig struct {
	Engine      *string               `yaml:"engine"`
	Parallelism *int                  `yaml:"parallelism"`
	OutputDir   *string               `yaml:"outputDir"`
	Commit      *bool                 `yaml:"commit"`
	Engines     map[string]*rawEngine `yaml:"engines"`
}

// rawEngine holds per-engine settings from YAML. Pointer fields
// distinguish "not set" (nil) from "set to empty string".
type rawEngine struct {
	Model *string `yaml:"model"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine:      "claude",
		Parallelism: MaxParallelism,
		OutputDir:   "output",
		Commit:      false,
		models:      map[string]string{},
	}
}

// Load reads .qgen/config.yaml under dir and merges it over the
// defaults. A missing config file yields the defaults; a malformed one
// is an error. Parallelism above the hard cap is clamped, not rejected.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, assets.QgenDir, assets.ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// Merge with defaults: only apply when the key was set in YAML.
	if raw.Engine != nil {
		cfg.Engine = *raw.Engine
	}
	if raw.Parallelism != nil {
		cfg.Parallelism = *raw.Parallelism
	}
	if raw.OutputDir != nil {
		cfg.OutputDir = *raw.OutputDir
	}
	if raw.Commit != nil {
		cfg.Commit = *raw.Commit
	}
	for name, re := range raw.Engines {
		if re != nil && re.Model != nil && *re.Model != "" {
			cfg.models[name] = *re.Model
		}
	}

	if cfg.Parallelism > MaxParallelism {
		cfg.Parallelism = MaxParallelism
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the resolved configuration is usable.
func (c *Config) Validate() error {
	if c.Engine == "" {
		return fmt.Errorf("engine must not be empty")
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("outputDir must not be empty")
	}
	return nil
}

// ModelFor returns the configured model override for an engine, empty
// when none is set.
func (c *Config) ModelFor(engineName string) string {
	return c.models[engineName]
}
