// Package config loads deskmonkey.yaml, the controller's persisted
// defaults, the same way the teacher toolkit's own wing.yaml does: a
// zero-value config when the file is absent, YAML when it's present, CLI
// flags applied on top by the caller.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds controller defaults that would otherwise have to be passed
// as flags on every invocation.
type Config struct {
	UserApp           string   `yaml:"user_app,omitempty"`
	UserAppArgs       []string `yaml:"user_app_args,omitempty"`
	ExitOnScriptError bool     `yaml:"exit_on_script_error,omitempty"`
	LogLevel          string   `yaml:"log_level,omitempty"`
	LogFile           string   `yaml:"log_file,omitempty"`
	HistoryDB         string   `yaml:"history_db,omitempty"`
	ObserverAddr      string   `yaml:"observer_addr,omitempty"` // empty disables the observer server
}

// defaults fills in zero fields that need a non-zero default, matching
// the plain if-empty-then-default style the teacher uses for its own
// settings layer.
func (c *Config) defaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HistoryDB == "" {
		c.HistoryDB = "deskmonkey-history.sqlite"
	}
}

// Load reads dir/deskmonkey.yaml. A missing file yields a zero-value
// (defaulted) Config rather than an error.
func Load(dir string) (*Config, error) {
	cfg := &Config{}
	path := filepath.Join(dir, "deskmonkey.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.defaults()
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}

// Save writes cfg to dir/deskmonkey.yaml, creating dir if necessary.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "deskmonkey.yaml"), data, 0644)
}
