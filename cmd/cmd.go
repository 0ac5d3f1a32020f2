// Package cmd holds the subcommands of the gncfile tool.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/finledger/gnc/backend/sqlite"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "books")
	c.Register(&booksCmd{}, "books")

	c.Register(&exportXMLCmd{}, "exports")
	c.Register(&exportQifCmd{}, "exports")
	c.Register(&exportCsvCmd{}, "exports")
}

var configFile = flag.String("config", "", "Path to the configuration file (YAML)")
var databaseFile = flag.String("db", "", "Path to the commodity/book database (overrides the configuration)")
var verbose = flag.Bool("v", false, "Enable debug logging")

// Logger builds the diagnostics logger for one command invocation.
func Logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// LoadConfig is the central function to load the tool configuration, merged
// with command-line overrides.
func LoadConfig() (*Config, error) {
	cfg, err := Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *databaseFile != "" {
		cfg.Database = *databaseFile
	}
	return cfg, nil
}

// OpenStore opens the commodity/book database named by the configuration,
// or returns (nil, nil) when no database is configured.
func OpenStore(cfg *Config) (*sqlite.Store, error) {
	if cfg.Database == "" {
		return nil, nil
	}
	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}
