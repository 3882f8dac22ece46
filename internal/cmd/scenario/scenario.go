// Package scenario parses scenario flags and replays a Lua game script.
package scenario

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/louisbranch/grimoire/internal/storage/sqlite"
	"github.com/louisbranch/grimoire/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	DBPath   string        `env:"GRIMOIRE_DB_PATH"           envDefault:"data/grimoire.db"`
	Scenario string        `env:"GRIMOIRE_SCENARIO_FILE"`
	Verbose  bool          `env:"GRIMOIRE_SCENARIO_VERBOSE"`
	Lenient  bool          `env:"GRIMOIRE_SCENARIO_LENIENT"`
	Timeout  time.Duration `env:"GRIMOIRE_SCENARIO_TIMEOUT"  envDefault:"30s"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "catalog database path")
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.BoolVar(&cfg.Lenient, "lenient", cfg.Lenient, "log failed expectations instead of aborting")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the scenario command against the catalog in the store.
func Run(ctx context.Context, cfg Config, errOut io.Writer) error {
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	cat, err := store.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	runner := scenario.NewRunner(cat, nil, scenario.Config{
		Timeout: cfg.Timeout,
		Verbose: cfg.Verbose,
		Lenient: cfg.Lenient,
		Logger:  log.New(errOut, "", 0),
	})
	return runner.RunFile(ctx, cfg.Scenario)
}
