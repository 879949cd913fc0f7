package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

const (
	EngineMemory  = "memory"
	EngineJournal = "journal"

	DefaultPath     = "kvs.db"
	DefaultEngine   = EngineMemory
	DefaultLogLevel = "warn"
)

type Config struct {
	Path     string `yaml:"path"`
	Engine   string `yaml:"engine"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Path:     DefaultPath,
		Engine:   DefaultEngine,
		LogLevel: DefaultLogLevel,
	}
}

// LoadConfig loads configuration from a YAML file if path is provided,
// then applies environment variable overrides on top and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is LoadConfig without validation, for callers that apply further
// overrides (e.g. command-line flags) before calling Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			// An explicitly provided path that can't be read is an error
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path must not be empty")
	}

	switch c.Engine {
	case EngineMemory, EngineJournal:
	default:
		return fmt.Errorf("unknown engine %q (want %q or %q)", c.Engine, EngineMemory, EngineJournal)
	}

	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// applyEnvOverrides allows environment variables to override YAML config values
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KVS_PATH"); v != "" {
		cfg.Path = v
	}
	if v := os.Getenv("KVS_ENGINE"); v != "" {
		cfg.Engine = strings.ToLower(v)
	}
	if v := os.Getenv("KVS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
