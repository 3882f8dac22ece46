// Package referee parses referee flags and starts the game service.
package referee

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/game/action"
	"github.com/louisbranch/grimoire/internal/mcpserver"
	"github.com/louisbranch/grimoire/internal/npc"
	"github.com/louisbranch/grimoire/internal/npc/bridge"
	entrypoint "github.com/louisbranch/grimoire/internal/platform/cmd"
	"github.com/louisbranch/grimoire/internal/storage/sqlite"
)

// Config holds referee command configuration.
type Config struct {
	DBPath    string   `env:"GRIMOIRE_DB_PATH"        envDefault:"data/grimoire.db"`
	AgentCmd  string   `env:"GRIMOIRE_NPC_AGENT"`
	AgentArgs []string `env:"GRIMOIRE_NPC_AGENT_ARGS" envSeparator:" "`
}

// ParseConfig parses environment and flags into a Config. Arguments
// after the flags become the NPC agent's own arguments.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "catalog and archive database path")
	fs.StringVar(&cfg.AgentCmd, "npc-agent", cfg.AgentCmd, "NPC agent command to spawn (optional)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		cfg.AgentArgs = rest
	}
	return cfg, nil
}

// Run starts the referee: catalog from the store, a fresh phase machine
// archiving into the same store, the optional NPC agent bridge, and the
// MCP surface on stdio.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceReferee, func(ctx context.Context) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		cat, err := store.LoadCatalog(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		machine := game.NewMachine(cat, action.NewRegistry(), store, game.WithArchiver(store))
		profiles, err := npc.NewRegistry(npc.DefaultProfiles()...)
		if err != nil {
			return fmt.Errorf("register npc profiles: %w", err)
		}

		if cfg.AgentCmd != "" {
			dispatcher := bridge.NewDispatcher(machine, store, profiles)
			agent, cmd, err := bridge.Spawn(ctx, dispatcher, cfg.AgentCmd, cfg.AgentArgs, bridge.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("spawn npc agent: %w", err)
			}
			defer func() {
				_ = cmd.Wait()
			}()
			go func() {
				if err := agent.Run(ctx); err != nil {
					logger.Error("npc bridge stopped", "error", err)
				}
			}()
			logger.Info("npc agent started", "command", cfg.AgentCmd)
		}

		logger.Info("referee ready",
			"db", cfg.DBPath,
			"characters", len(cat.Roles()),
			"scripts", len(cat.Scripts()))
		return mcpserver.Run(ctx, mcpserver.Config{}, cat, machine, store, profiles, store)
	})
}
