// Package mcpsource provides inbound adapters for the MCP client-facing
// side of the proxy.
package mcpsource

import (
	"context"
	"os"

	"github.com/passline/mcp-gate/internal/jsonrpcpeer"
	"github.com/passline/mcp-gate/internal/port/inbound"
	"github.com/passline/mcp-gate/pkg/mcp"
)

// StdioSource connects the proxy to a client over the process's own
// stdin/stdout. It implements the inbound.Source port.
type StdioSource struct{}

// NewStdioSource creates a stdio source adapter.
func NewStdioSource() *StdioSource {
	return &StdioSource{}
}

// Connect returns a Peer reading client requests from stdin and writing
// responses/notifications to stdout.
func (s *StdioSource) Connect(ctx context.Context) (*jsonrpcpeer.Peer, error) {
	return jsonrpcpeer.New(mcp.ClientToServer, os.Stdin, os.Stdout), nil
}

// Close is a no-op: stdio has no resources to release.
func (s *StdioSource) Close() error {
	return nil
}

// Compile-time check that StdioSource implements the Source port.
var _ inbound.Source = (*StdioSource)(nil)
