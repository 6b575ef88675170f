// Package inbound defines the inbound port interfaces for the proxy core.
package inbound

import (
	"context"

	"github.com/passline/mcp-gate/internal/jsonrpcpeer"
)

// Source is the inbound port facing the MCP client. Adapters implement this
// to support different client-facing transports (stdio, HTTP).
type Source interface {
	// Connect establishes the source connection and returns the Peer the
	// Passthrough Context reads client-bound messages from and writes
	// responses/notifications to.
	Connect(ctx context.Context) (*jsonrpcpeer.Peer, error)

	// Close terminates the source connection and releases its resources.
	Close() error
}
