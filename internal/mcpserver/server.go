// Package mcpserver exposes the referee over MCP so AI storytellers and
// observers can inspect running games, the catalog, and player journals.
// Every tool is read-only; mutations stay on the bridge and the phase
// machine's own API.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/journal"
	"github.com/louisbranch/grimoire/internal/npc"
	"github.com/louisbranch/grimoire/internal/scoring"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "Grimoire MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

// TransportStdio uses standard input/output for MCP.
const TransportStdio TransportKind = "stdio"

// Config configures the MCP server.
type Config struct {
	Transport TransportKind
}

// History provides recorded outcomes for script scoring. The sqlite
// store implements it; a nil History scores scripts from catalog data
// alone.
type History interface {
	PlayHistory(ctx context.Context, scriptID string) ([]scoring.PlayRecord, error)
}

// Server hosts the MCP server over an in-process referee.
type Server struct {
	mcpServer *mcp.Server
}

// New wires every referee tool and resource into a configured MCP server.
func New(cat *catalog.Catalog, machine *game.Machine, log journal.Store, profiles *npc.Registry, history History) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	registerGameTools(mcpServer, machine)
	registerJournalTools(mcpServer, machine, log)
	registerCatalogTools(mcpServer, cat, history)
	registerProfileResources(mcpServer, profiles)
	registerCatalogResources(mcpServer, cat)

	return &Server{mcpServer: mcpServer}
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// Run creates and serves an MCP server until the context ends.
func Run(ctx context.Context, cfg Config, cat *catalog.Catalog, machine *game.Machine, log journal.Store, profiles *npc.Registry, history History) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	if cfg.Transport != TransportStdio {
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
	return New(cat, machine, log, profiles, history).Serve(ctx)
}

// serveWithTransport starts the MCP server using the provided transport.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	return err
}
