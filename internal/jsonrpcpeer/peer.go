// Package jsonrpcpeer implements the newline-delimited JSON-RPC message pump
// shared by every stdio-shaped endpoint: the proxy's source connection to its
// client and its target connection to an MCP server both read and write the
// same wire shape, just with the direction tag flipped.
package jsonrpcpeer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/passline/mcp-gate/pkg/mcp"
)

const (
	scannerInitialBuffer = 256 * 1024
	scannerMaxBuffer     = 4 * 1024 * 1024
)

// Handler processes one inbound message read off a Peer. Handlers run
// sequentially on the Peer's read goroutine; anything that needs to block on
// downstream work must hand off to its own goroutine rather than stalling
// the read loop, or later messages (including the ones its own work depends
// on) would never be read.
type Handler func(ctx context.Context, msg *mcp.Message)

// Peer wraps one half-duplex stdio-shaped connection — a reader tagged with
// the direction inbound messages carry, and a writer safe for concurrent use
// by the request-phase, response-phase, and continueAsync resumption paths
// alike.
type Peer struct {
	direction mcp.Direction
	in        io.Reader
	out       io.Writer

	mu sync.Mutex
}

// New builds a Peer. direction tags every message Run decodes off in; out is
// where Write sends messages, serialized against concurrent callers.
func New(direction mcp.Direction, in io.Reader, out io.Writer) *Peer {
	return &Peer{direction: direction, in: in, out: out}
}

// Direction returns the tag this peer's Run loop applies to inbound messages.
func (p *Peer) Direction() mcp.Direction { return p.direction }

// Write serializes msg.Raw followed by a newline to the peer's writer.
// Safe for concurrent use.
func (p *Peer) Write(msg *mcp.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.out.Write(msg.Raw); err != nil {
		return fmt.Errorf("jsonrpcpeer: write: %w", err)
	}
	if _, err := p.out.Write([]byte("\n")); err != nil {
		return fmt.Errorf("jsonrpcpeer: write newline: %w", err)
	}
	return nil
}

// Run reads newline-delimited JSON-RPC messages until ctx is cancelled, the
// reader hits EOF, or a scan error occurs. Every line is wrapped into an
// *mcp.Message (decoding failures are non-fatal — the message is still
// delivered with Decoded left nil, for best-effort passthrough) and handed to
// handle in order. Run blocks until the loop ends; callers that want this
// concurrent with other Peer activity run it in its own goroutine.
func (p *Peer) Run(ctx context.Context, handle Handler) error {
	scanner := bufio.NewScanner(p.in)
	buf := make([]byte, 0, scannerInitialBuffer)
	scanner.Buffer(buf, scannerMaxBuffer)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw := append([]byte(nil), scanner.Bytes()...)
		msg := &mcp.Message{
			Raw:       raw,
			Direction: p.direction,
			Timestamp: time.Now(),
		}
		if decoded, err := mcp.DecodeMessage(raw); err == nil {
			msg.Decoded = decoded
			if p.direction == mcp.ClientToServer {
				_ = msg.ParseParams()
			}
		}

		handle(ctx, msg)
	}

	return scanner.Err()
}
