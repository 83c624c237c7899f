package agents

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/relayedit/collab/shared"
)

// Config drives the CLI agent. Values from the YAML file can be overridden
// with COLLAB_SERVER_URL, COLLAB_USERNAME and COLLAB_CONNECTION_ID.
type Config struct {
	ServerURL string `yaml:"server_url"`
	Username  string `yaml:"username"`
	// ConnectionID skips the login bootstrap when set.
	ConnectionID string    `yaml:"connection_id"`
	Log          LogConfig `yaml:"log"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:8080",
		Log: LogConfig{
			File:       "collab-cli.log",
			MaxSizeMB:  10,
			MaxBackups: 2,
			MaxAgeDays: 3,
		},
	}
}

// LoadConfig reads the YAML file at path when it exists, then applies
// environment overrides. A missing file is not an error; the defaults plus
// environment must then carry the required fields.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// fall through to env
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg.ServerURL = shared.Getenv("COLLAB_SERVER_URL", cfg.ServerURL)
	cfg.Username = shared.Getenv("COLLAB_USERNAME", cfg.Username)
	cfg.ConnectionID = shared.Getenv("COLLAB_CONNECTION_ID", cfg.ConnectionID)

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.Username == "" && c.ConnectionID == "" {
		return errors.New("either username or connection_id is required")
	}
	return nil
}
