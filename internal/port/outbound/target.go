// Package outbound defines the outbound port interfaces for connecting
// to the MCP target server.
package outbound

import (
	"context"

	"github.com/passline/mcp-gate/internal/jsonrpcpeer"
)

// Target is the outbound port for connecting to the MCP target server.
// Adapters implement this to support different transports (stdio, HTTP).
type Target interface {
	// Connect establishes the target connection and returns the Peer the
	// Passthrough Context reads target-bound messages from and writes
	// forwarded requests to.
	Connect(ctx context.Context) (*jsonrpcpeer.Peer, error)

	// Wait blocks until the target connection terminates.
	// Returns nil on graceful shutdown, error on failure.
	Wait() error

	// Close terminates the target connection and releases its resources.
	Close() error
}
