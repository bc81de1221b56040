// Package config models intentd.yml.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Listen is the HTTP channel bind address.
	Listen string `yaml:"listen"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// EchoSnapshots pushes a document/snapshot notification over the stdio
	// channel after every successful mutation.
	EchoSnapshots bool `yaml:"echo_snapshots"`
}

func Default() Config {
	return Config{
		Listen:        "127.0.0.1:8484",
		LogLevel:      "info",
		EchoSnapshots: true,
	}
}

// Load reads path when it exists; a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	return FromYAML(data)
}

// FromYAML parses config on top of the defaults.
func FromYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return cfg, fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.Listen == "" {
		return cfg, fmt.Errorf("listen must not be empty")
	}
	return cfg, nil
}
