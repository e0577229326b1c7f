package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ciphercomms/internal/relay"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home         string        `yaml:"home"`          // config directory, e.g. $HOME/.ciphercomms
	RelayURL     string        `yaml:"relay"`         // relay base URL; empty means local stores
	UserID       string        `yaml:"user"`          // acting user id
	PollInterval time.Duration `yaml:"poll-interval"` // subscription refresh over the relay
	LogLevel     string        `yaml:"log-level"`     // debug, info, warn or error

	// Relay server only.
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"data-dir"` // empty keeps relay state in memory
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		PollInterval: relay.DefaultPollInterval,
		LogLevel:     "info",
		Listen:       ":8080",
	}
}

// LoadConfig reads a YAML config from path on top of the defaults. A
// missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveHome fills in the default home directory and creates it.
func (c *Config) ResolveHome() error {
	if c.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.Home = filepath.Join(dir, ".ciphercomms")
	}
	return os.MkdirAll(c.Home, 0o700)
}
