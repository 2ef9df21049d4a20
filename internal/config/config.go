// Package config loads operator-facing backend tuning from YAML. It is
// consumed only by cmd/dirwatch; library callers configure a subscription
// directly through dirwatch.Options.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds defaults for fields the in-process Options struct leaves
// zero.
type Config struct {
	Inotify     InotifyConfig     `yaml:"inotify"`
	BruteForce  BruteForceConfig  `yaml:"brute_force"`
	PendingMove PendingMoveConfig `yaml:"pending_move"`
	Ignore      []string          `yaml:"ignore"`
}

type InotifyConfig struct {
	ReadBufferEvents int `yaml:"read_buffer_events"`
}

type BruteForceConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

type PendingMoveConfig struct {
	AgeSeconds int `yaml:"age_seconds"`
}

// Load reads and validates a config file at path, applying defaults for
// any zero-valued field.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a Config populated entirely with defaults, for callers
// that have no config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Inotify.ReadBufferEvents <= 0 {
		cfg.Inotify.ReadBufferEvents = 4096
	}
	if cfg.BruteForce.PollIntervalSeconds <= 0 {
		cfg.BruteForce.PollIntervalSeconds = 2
	}
	if cfg.PendingMove.AgeSeconds <= 0 {
		cfg.PendingMove.AgeSeconds = 5
	}
}
