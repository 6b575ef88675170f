// Package passthrough owns a single source/target connection pair and drives
// every message that crosses it through the Pipeline Processor. It is the
// direct generalization of the teacher's ProxyService.Run/copyMessages loop:
// where that loop intercepted messages with a single MessageInterceptor and
// wrote them straight through, a Context runs the full request/response/
// notification state machine and correlates responses back to the request
// that opened them.
package passthrough

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/passline/mcp-gate/internal/adapter/inbound/httpmetrics"
	"github.com/passline/mcp-gate/internal/ctxkey"
	"github.com/passline/mcp-gate/internal/hookchain"
	"github.com/passline/mcp-gate/internal/hookerr"
	"github.com/passline/mcp-gate/internal/jsonrpcpeer"
	"github.com/passline/mcp-gate/internal/pipeline"
	"github.com/passline/mcp-gate/internal/reqctx"
	"github.com/passline/mcp-gate/pkg/mcp"
)

// Options configures optional Context behavior.
type Options struct {
	// AppendMetadataToRequest/Response/Notification stamp a `_meta` object
	// onto outgoing payloads of that kind before they go on the wire,
	// preserving any `_meta` keys already present. Requests and
	// notifications get session id, request id and a proxy timestamp;
	// responses get source, source/target session ids and a timestamp.
	AppendMetadataToRequest      bool
	AppendMetadataToResponse     bool
	AppendMetadataToNotification bool

	// OnAsyncError receives errors from detached continueAsync
	// continuations that have no other observer (no pending reply is owed
	// to either peer). May be nil.
	OnAsyncError func(error)

	// Metrics, when non-nil, records message/abort/continuation counts on
	// the Prometheus collectors exposed by the metrics/health listener.
	Metrics *httpmetrics.Metrics
}

// pending is one in-flight request awaiting its response leg.
type pending struct {
	entry   mcp.TaxonomyEntry
	node    *hookchain.Node
	forward bool
	origReq *mcp.Message
	extra   *reqctx.Extra
	// asyncBoundary is the node that returned continueAsync for this
	// request, if this pending entry is a resumed continuation; the
	// response phase walks past it without invoking it a second time.
	asyncBoundary *hookchain.Node
	// replyTo is the peer the eventual response is written to. nil when
	// callback is set, meaning the response is delivered only to the
	// hook's callback (the continueAsync path), never re-sent on the wire.
	replyTo  *jsonrpcpeer.Peer
	callback hookchain.AsyncCallback
}

// Context is the Passthrough Context for one source/target connection pair.
type Context struct {
	processor *pipeline.Processor
	sessionID string
	// sourceSessionID/targetSessionID identify this Context's two legs
	// independently for the response `_meta` stamp (spec.md §6); sessionID
	// above remains the single logical session id threaded through
	// reqctx.Extra for hooks.
	sourceSessionID string
	targetSessionID string
	logger          *slog.Logger
	opts            Options

	source *jsonrpcpeer.Peer
	target *jsonrpcpeer.Peer

	mu             sync.Mutex
	pendingBySrcID map[string]*pending // keyed by the id of a request that came from source
	pendingByTgtID map[string]*pending // keyed by the id of a request that came from target

	wg sync.WaitGroup
}

// New builds a Context over chain, not yet connected to any transport.
func New(chain *hookchain.Chain, logger *slog.Logger, tracer trace.Tracer, opts Options) *Context {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	processor := pipeline.New(chain, logger, tracer)
	if opts.Metrics != nil {
		processor.SetHookDurationRecorder(opts.Metrics)
	}
	return &Context{
		processor:       processor,
		sessionID:       uuid.NewString(),
		sourceSessionID: uuid.NewString(),
		targetSessionID: uuid.NewString(),
		logger:          logger,
		opts:            opts,
		pendingBySrcID:  make(map[string]*pending),
		pendingByTgtID:  make(map[string]*pending),
	}
}

// Connect attaches the source and target peers. Must be called before Run.
func (c *Context) Connect(source, target *jsonrpcpeer.Peer) {
	c.source = source
	c.target = target
	if c.opts.Metrics != nil {
		c.opts.Metrics.ActiveSessions.Inc()
	}
}

// Run drives both directions until ctx is cancelled or either peer's read
// loop ends. It returns the first non-context, non-EOF error encountered, or
// nil on a clean shutdown.
func (c *Context) Run(ctx context.Context) error {
	if c.source == nil || c.target == nil {
		return hookerr.New(hookerr.CodeRequestRejected, "no source or target transport connected", nil)
	}

	ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, c.logger)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		err := c.source.Run(ctx, c.handleFromSource)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			errCh <- fmt.Errorf("source: %w", err)
		} else {
			errCh <- nil
		}
		cancel()
	}()

	go func() {
		err := c.target.Run(ctx, c.handleFromTarget)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			errCh <- fmt.Errorf("target: %w", err)
		} else {
			errCh <- nil
		}
		cancel()
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.wg.Wait()
	return firstErr
}

// Close waits for any detached continueAsync continuations spawned by this
// Context to finish, so callers can shut down without leaking goroutines.
func (c *Context) Close() {
	c.wg.Wait()
	if c.opts.Metrics != nil && c.source != nil && c.target != nil {
		c.opts.Metrics.ActiveSessions.Dec()
	}
}

// Connected reports whether both the source and target transports are
// attached, for use by a health check.
func (c *Context) Connected() bool {
	return c.source != nil && c.target != nil
}
