package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the tool configuration, loaded from an optional YAML file.
type Config struct {
	// Database is the path of the commodity/book database. Empty disables
	// persistence: imports still work, but commodities are not remembered
	// across runs.
	Database string `yaml:"database"`

	Qif struct {
		// Compress zips the QIF output even when a single file results.
		Compress bool `yaml:"compress"`
	} `yaml:"qif"`

	Csv struct {
		// Separator is the field delimiter for account-list exports.
		Separator string `yaml:"separator"`
	} `yaml:"csv"`
}

// Load reads the configuration file at path. An empty path yields the
// defaults; a missing explicit file is an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Csv.Separator = ","
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration %s: %w", path, err)
	}
	if cfg.Csv.Separator == "" {
		cfg.Csv.Separator = ","
	}
	return cfg, nil
}

// SeparatorRune returns the configured CSV delimiter as a rune.
func (c *Config) SeparatorRune() rune {
	for _, r := range c.Csv.Separator {
		return r
	}
	return ','
}
