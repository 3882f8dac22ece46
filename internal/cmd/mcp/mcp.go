// Package mcp parses MCP command flags and serves the read-only surface.
package mcp

import (
	"context"
	"flag"
	"fmt"

	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/game/action"
	"github.com/louisbranch/grimoire/internal/mcpserver"
	"github.com/louisbranch/grimoire/internal/npc"
	entrypoint "github.com/louisbranch/grimoire/internal/platform/cmd"
	"github.com/louisbranch/grimoire/internal/storage/sqlite"
)

// Config holds MCP command configuration.
type Config struct {
	DBPath string `env:"GRIMOIRE_DB_PATH" envDefault:"data/grimoire.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "catalog and archive database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves catalog, archive, and journal queries over MCP stdio. The
// machine starts empty; live games belong to the referee service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		cat, err := store.LoadCatalog(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		machine := game.NewMachine(cat, action.NewRegistry(), store)
		profiles, err := npc.NewRegistry(npc.DefaultProfiles()...)
		if err != nil {
			return fmt.Errorf("register npc profiles: %w", err)
		}
		return mcpserver.Run(ctx, mcpserver.Config{}, cat, machine, store, profiles, store)
	})
}
