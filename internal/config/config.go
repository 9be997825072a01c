// Package config loads desimctl's run configuration, merging an optional
// YAML file with command-line flag overrides (flags win).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ResourceSpec describes one resource to create before loading processes.
type ResourceSpec struct {
	Name     string `yaml:"name"`
	Capacity uint64 `yaml:"capacity"`
}

// ProcessSpec describes one process to load: a script file and the entry
// function it runs.
type ProcessSpec struct {
	Name   string `yaml:"name"`
	Script string `yaml:"script"`
	Fn     string `yaml:"fn"`
}

// Config is desimctl's run configuration.
type Config struct {
	Horizon   float64        `yaml:"horizon"`
	Seed      int64          `yaml:"seed"`
	Resources []ResourceSpec `yaml:"resources"`
	Processes []ProcessSpec  `yaml:"processes"`
}

// Default returns the zero-value run configuration: no resources, no
// processes, horizon 0, seed 0.
func Default() *Config {
	return &Config{}
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %q: %w", path, err)
	}
	return cfg, nil
}
