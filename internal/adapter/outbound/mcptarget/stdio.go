// Package mcptarget provides outbound adapters for connecting to the MCP
// target server, over stdio (subprocess) or HTTP.
package mcptarget

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/passline/mcp-gate/internal/jsonrpcpeer"
	"github.com/passline/mcp-gate/internal/port/outbound"
	"github.com/passline/mcp-gate/pkg/mcp"
)

// StdioTarget launches the MCP target as a subprocess and bridges its
// stdin/stdout into a jsonrpcpeer.Peer. It implements the outbound.Target
// port.
type StdioTarget struct {
	command string
	args    []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewStdioTarget creates a target adapter for the given target executable.
func NewStdioTarget(command string, args ...string) *StdioTarget {
	return &StdioTarget{command: command, args: args}
}

// Connect launches the target subprocess and returns a Peer wired to its
// stdin/stdout. The target's stderr is forwarded to the proxy's stderr, same
// as the MCP spec permits for server-side logging.
func (t *StdioTarget) Connect(ctx context.Context) (*jsonrpcpeer.Peer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd != nil {
		return nil, errors.New("target already started")
	}

	cmd := exec.CommandContext(ctx, t.command, t.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("target stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("target stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, fmt.Errorf("start target: %w", err)
	}
	t.cmd = cmd

	return jsonrpcpeer.New(mcp.ServerToClient, stdout, stdin), nil
}

// Wait blocks until the target subprocess exits.
func (t *StdioTarget) Wait() error {
	t.mu.Lock()
	cmd := t.cmd
	t.mu.Unlock()

	if cmd == nil {
		return errors.New("target not started")
	}
	return cmd.Wait()
}

// Close kills the target subprocess if still running.
func (t *StdioTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	if err := t.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill target: %w", err)
	}
	return nil
}

// Compile-time check that StdioTarget implements the Target port.
var _ outbound.Target = (*StdioTarget)(nil)
