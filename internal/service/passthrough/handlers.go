package passthrough

import (
	"context"

	"github.com/google/uuid"

	"github.com/passline/mcp-gate/internal/hookchain"
	"github.com/passline/mcp-gate/internal/hookerr"
	"github.com/passline/mcp-gate/internal/jsonrpcpeer"
	"github.com/passline/mcp-gate/internal/pipeline"
	"github.com/passline/mcp-gate/internal/reqctx"
	"github.com/passline/mcp-gate/pkg/mcp"
)

// pingBypassMethod is forwarded directly, skipping the hook chain entirely:
// a liveness probe has no meaningful interception surface and must stay
// cheap regardless of chain length.
const pingBypassMethod = "ping"

func (c *Context) handleFromSource(ctx context.Context, msg *mcp.Message) {
	c.handleInbound(ctx, msg, c.target, c.source, c.pendingByTgtID, c.pendingBySrcID)
}

func (c *Context) handleFromTarget(ctx context.Context, msg *mcp.Message) {
	c.handleInbound(ctx, msg, c.source, c.target, c.pendingBySrcID, c.pendingByTgtID)
}

// handleInbound processes one message read from one peer. fwdPeer is where a
// forwarded request/notification goes; replyPeer is where a synthesized
// response goes. repliesToOwnPending is the map keyed by ids this side
// itself issued (consulted when msg is a response); repliesITrack is the map
// this call populates when it forwards a new request (consulted by the
// other direction's handleInbound when that response arrives).
func (c *Context) handleInbound(ctx context.Context, msg *mcp.Message, fwdPeer, replyPeer *jsonrpcpeer.Peer, repliesToOwnPending, repliesITrack map[string]*pending) {
	if msg.Decoded == nil {
		// Undecodable: best-effort raw passthrough, no hook visibility.
		if err := fwdPeer.Write(msg); err != nil {
			c.logger.Error("passthrough write failed", "error", err)
		}
		return
	}

	switch {
	case msg.IsResponse():
		c.handleResponse(ctx, msg, repliesToOwnPending)
		return

	case msg.IsNotification():
		c.handleNotification(ctx, msg, fwdPeer)
		return

	case msg.Method() == pingBypassMethod:
		if err := fwdPeer.Write(msg); err != nil {
			c.logger.Error("ping forward failed", "error", err)
		}
		return

	default:
		c.handleRequest(ctx, msg, fwdPeer, replyPeer, repliesITrack)
	}
}

func (c *Context) handleNotification(ctx context.Context, msg *mcp.Message, fwdPeer *jsonrpcpeer.Peer) {
	entry := mcp.LookupNotification(msg.Direction)
	extra := reqctx.New(uuid.NewString(), c.sessionID, nil, nil, nil)

	outcome := c.processor.ProcessNotification(ctx, entry, msg, extra)
	if outcome.Kind == pipeline.KindAbort {
		c.logger.Error("notification rejected by hook chain", "method", msg.Method(), "error", outcome.Err)
		if c.opts.Metrics != nil {
			c.opts.Metrics.AbortsTotal.WithLabelValues("notification").Inc()
		}
		return
	}

	out := outcome.Notification
	if out == nil {
		out = msg
	}
	if c.opts.AppendMetadataToNotification {
		out = stampMetadata(out, extra)
	}
	if err := fwdPeer.Write(out); err != nil {
		c.logger.Error("notification forward failed", "error", err)
	}
}

func (c *Context) handleRequest(ctx context.Context, msg *mcp.Message, fwdPeer, replyPeer *jsonrpcpeer.Peer, track map[string]*pending) {
	entry := mcp.Lookup(msg.Method(), msg.Direction)
	extra := reqctx.New(uuid.NewString(), c.sessionID, nil, nil, nil)

	outcome := c.processor.ProcessRequest(ctx, entry, msg, extra)
	c.dispatchRequestOutcome(ctx, entry, msg, extra, outcome, fwdPeer, replyPeer, track, nil, nil)
}

// dispatchRequestOutcome applies a request-phase Outcome: forwarding,
// responding directly, aborting, or spawning a detached continuation.
// asyncCallback is non-nil only when this call is itself resuming a
// previously suspended continueAsync chain — in that case a terminal
// outcome here is delivered to asyncCallback instead of onto the wire,
// since the peer already received its immediate synchronous reply.
// asyncBoundary is the node that returned continueAsync for this request, if
// any; it is threaded through to the response phase so that phase can skip
// invoking that node's own result/error handler a second time.
func (c *Context) dispatchRequestOutcome(ctx context.Context, entry mcp.TaxonomyEntry, origReq *mcp.Message, extra *reqctx.Extra, outcome pipeline.Outcome, fwdPeer, replyPeer *jsonrpcpeer.Peer, track map[string]*pending, asyncBoundary *hookchain.Node, asyncCallback func(*mcp.Message, error)) {
	if c.opts.Metrics != nil {
		c.opts.Metrics.MessagesTotal.WithLabelValues(string(entry.Channel), entry.Method, outcomeLabel(outcome.Kind)).Inc()
		if outcome.Kind == pipeline.KindAbort {
			c.opts.Metrics.AbortsTotal.WithLabelValues("request").Inc()
		}
		if outcome.Kind == pipeline.KindContinueAsync {
			c.opts.Metrics.AsyncContinuation.WithLabelValues("continue").Inc()
		}
	}

	switch outcome.Kind {
	case pipeline.KindContinue:
		out := outcome.Request
		if out == nil {
			out = origReq
		}
		if c.opts.AppendMetadataToRequest {
			out = stampMetadata(out, extra)
		}
		if asyncCallback != nil {
			c.storePendingAsync(track, out, entry, outcome.LastProcessedNode, outcome.Forward, origReq, extra, asyncBoundary, asyncCallback)
		} else {
			c.storePending(track, out, entry, outcome.LastProcessedNode, outcome.Forward, origReq, extra, replyPeer)
		}
		if err := fwdPeer.Write(out); err != nil {
			c.logger.Error("request forward failed", "error", err)
		}

	case pipeline.KindRespond:
		// A hook short-circuited the request phase with a synthetic
		// response; that response still owes every hook closer to the
		// source its response-phase visit, so it runs through
		// ProcessResponse exactly like a real target reply would.
		respOutcome := c.processor.ProcessResponse(ctx, entry, outcome.Response, nil, outcome.LastProcessedNode, outcome.Forward, origReq, extra, asyncBoundary)
		if asyncCallback != nil {
			switch respOutcome.Kind {
			case pipeline.KindAbort:
				asyncCallback(nil, respOutcome.Err)
			default:
				asyncCallback(respOutcome.Response, nil)
			}
			return
		}
		switch respOutcome.Kind {
		case pipeline.KindAbort:
			c.writeError(replyPeer, origReq, respOutcome.Err)
		default:
			c.writeResponse(replyPeer, respOutcome.Response, extra)
		}

	case pipeline.KindAbort:
		if asyncCallback != nil {
			asyncCallback(nil, outcome.Err)
			return
		}
		c.writeError(replyPeer, origReq, outcome.Err)

	case pipeline.KindContinueAsync:
		if asyncCallback != nil {
			// A hook chose to go async again while resuming an already
			// detached continuation; deliver the new immediate payload to
			// the original caller's callback and keep resuming underneath.
			asyncCallback(outcome.Response, nil)
		} else {
			c.writeResponse(replyPeer, outcome.Response, extra)
		}
		c.wg.Add(1)
		go c.resumeAsync(ctx, entry, outcome, extra, fwdPeer, replyPeer, track)
	}
}

func (c *Context) resumeAsync(ctx context.Context, entry mcp.TaxonomyEntry, outcome pipeline.Outcome, extra *reqctx.Extra, fwdPeer, replyPeer *jsonrpcpeer.Peer, track map[string]*pending) {
	defer c.wg.Done()

	deliver := outcome.Callback
	if deliver == nil {
		deliver = func(*mcp.Message, error) {}
	}

	// The node that just returned continueAsync is this continuation's
	// async boundary: the response phase must walk past it on the way back
	// to the source, but never invoke its own result/error handler again.
	asyncBoundary := outcome.LastProcessedNode

	resumed := c.processor.ResumeRequest(ctx, entry, outcome.PendingRequest, extra, outcome.LastProcessedNode, outcome.Forward)
	c.dispatchRequestOutcome(ctx, entry, outcome.PendingRequest, extra, resumed, fwdPeer, replyPeer, track, asyncBoundary, func(resp *mcp.Message, err error) {
		deliver(resp, err)
		if err != nil && outcome.Callback == nil && c.opts.OnAsyncError != nil {
			c.opts.OnAsyncError(err)
		}
	})
}

func (c *Context) handleResponse(ctx context.Context, msg *mcp.Message, owned map[string]*pending) {
	id := string(msg.RawID())

	c.mu.Lock()
	p, ok := owned[id]
	if ok {
		delete(owned, id)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("response with no matching pending request", "id", id)
		return
	}

	var respErr error
	if resp := msg.Response(); resp != nil && resp.Error != nil {
		respErr = resp.Error
	}

	outcome := c.processor.ProcessResponse(ctx, p.entry, msg, respErr, p.node, p.forward, p.origReq, p.extra, p.asyncBoundary)

	if p.callback != nil {
		switch outcome.Kind {
		case pipeline.KindAbort:
			p.callback(nil, outcome.Err)
		default:
			p.callback(outcome.Response, nil)
		}
		return
	}

	switch outcome.Kind {
	case pipeline.KindAbort:
		c.writeError(p.replyTo, p.origReq, outcome.Err)
	default:
		c.writeResponse(p.replyTo, outcome.Response, p.extra)
	}
}

func (c *Context) storePending(track map[string]*pending, out *mcp.Message, entry mcp.TaxonomyEntry, node *hookchain.Node, forward bool, origReq *mcp.Message, extra *reqctx.Extra, replyTo *jsonrpcpeer.Peer) {
	id := string(out.RawID())
	if id == "" {
		return
	}
	c.mu.Lock()
	track[id] = &pending{entry: entry, node: node, forward: forward, origReq: origReq, extra: extra, replyTo: replyTo}
	c.mu.Unlock()
}

func (c *Context) storePendingAsync(track map[string]*pending, out *mcp.Message, entry mcp.TaxonomyEntry, node *hookchain.Node, forward bool, origReq *mcp.Message, extra *reqctx.Extra, asyncBoundary *hookchain.Node, callback func(*mcp.Message, error)) {
	id := string(out.RawID())
	if id == "" {
		return
	}
	c.mu.Lock()
	track[id] = &pending{entry: entry, node: node, forward: forward, origReq: origReq, extra: extra, asyncBoundary: asyncBoundary, callback: callback}
	c.mu.Unlock()
}

func (c *Context) writeResponse(peer *jsonrpcpeer.Peer, resp *mcp.Message, extra *reqctx.Extra) {
	if resp == nil {
		return
	}
	if c.opts.AppendMetadataToResponse {
		resp = stampResponseMetadata(resp, c.sourceSessionID, c.targetSessionID)
	}
	if err := peer.Write(resp); err != nil {
		c.logger.Error("response write failed", "error", err)
	}
}

func outcomeLabel(kind pipeline.Kind) string {
	switch kind {
	case pipeline.KindContinue:
		return "continue"
	case pipeline.KindRespond:
		return "respond"
	case pipeline.KindContinueAsync:
		return "continue_async"
	case pipeline.KindAbort:
		return "abort"
	default:
		return "unknown"
	}
}

func (c *Context) writeError(peer *jsonrpcpeer.Peer, origReq *mcp.Message, err error) {
	hce := hookerr.Adapt(err)
	var id []byte
	if origReq != nil {
		id = origReq.RawID()
	}
	raw, marshalErr := hookerr.WriteJSONRPCError(id, hce)
	if marshalErr != nil {
		c.logger.Error("failed to marshal error response", "error", marshalErr)
		return
	}
	if writeErr := peer.Write(&mcp.Message{Raw: raw}); writeErr != nil {
		c.logger.Error("error response write failed", "error", writeErr)
	}
}
