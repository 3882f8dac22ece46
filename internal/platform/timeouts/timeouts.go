// Package timeouts defines shared timeout constants used across commands.
// Centralizing these values prevents drift between component boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// BridgeCall caps how long the referee waits for a single NPC agent
// request/response round trip over the stdio bridge.
const BridgeCall = 10 * time.Second

// BridgeShutdown limits how long the bridge waits for the agent subprocess
// to exit after its stdin is closed.
const BridgeShutdown = 3 * time.Second

// StorageQuery caps a single SQLite read on the archive or catalog store.
const StorageQuery = 5 * time.Second

// Shutdown limits how long the referee service waits for in-flight phase
// resolution during graceful shutdown.
const Shutdown = 5 * time.Second
