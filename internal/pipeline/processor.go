package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/passline/mcp-gate/internal/hookchain"
	"github.com/passline/mcp-gate/internal/hookerr"
	"github.com/passline/mcp-gate/internal/reqctx"
	"github.com/passline/mcp-gate/pkg/mcp"
)

// HookDurationRecorder receives the wall-clock duration of one hook
// invocation. Satisfied by the metrics/health listener's Prometheus
// histogram; kept as a small interface here so the Processor doesn't need
// to import a concrete metrics backend.
type HookDurationRecorder interface {
	Observe(hook, phase string, seconds float64)
}

// Processor walks a hookchain.Chain on behalf of the Passthrough Context. It
// holds no per-request state itself — every call is independent and safe to
// invoke concurrently for different requests, which is what lets one process
// serve arbitrarily many sessions while staying single-threaded per request.
type Processor struct {
	chain     *hookchain.Chain
	logger    *slog.Logger
	tracer    trace.Tracer
	durations HookDurationRecorder
}

// New builds a Processor over chain. logger and tracer may be nil; a nil
// logger discards logs, a nil tracer uses the global no-op tracer.
func New(chain *hookchain.Chain, logger *slog.Logger, tracer trace.Tracer) *Processor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if tracer == nil {
		tracer = otel.Tracer("hookchain")
	}
	return &Processor{chain: chain, logger: logger, tracer: tracer}
}

// SetHookDurationRecorder wires r to receive every hook invocation's
// duration. May be called once after New; nil disables recording (the
// default).
func (p *Processor) SetHookDurationRecorder(r HookDurationRecorder) {
	p.durations = r
}

// forwardForRequestPhase reports whether the request phase for msg walks the
// chain head-to-tail. Messages originating from the source (ClientToServer)
// walk forward; messages originating from the target (ServerToClient, e.g. a
// server-initiated sampling/elicitation call) walk in reverse, so the chain
// reads symmetrically regardless of which peer opened the exchange.
func forwardForRequestPhase(dir mcp.Direction) bool {
	return mcp.RequestDirection(dir) == mcp.ClientToServer
}

// ProcessRequest walks the chain's request phase for msg, in the direction
// implied by msg.Direction, starting at the chain's corresponding end.
func (p *Processor) ProcessRequest(ctx context.Context, entry mcp.TaxonomyEntry, msg *mcp.Message, extra *reqctx.Extra) Outcome {
	forward := forwardForRequestPhase(msg.Direction)
	node := p.chain.StartNode(forward)

	if node == nil {
		return continueRequest(msg, nil, forward)
	}

	current := msg
	var last *hookchain.Node

	for node != nil {
		ctx, span := p.startSpan(ctx, node, entry.Methods.Request, "request")

		outcome, err, present := hookchain.Invoke(ctx, node, entry.Methods.Request, current, extra)
		if err != nil {
			hce := hookerr.Adapt(err)
			span.RecordError(hce)
			span.SetStatus(codes.Error, hce.Error())
			span.End()
			p.logger.Error("hook request handler failed", "hook", node.Hook().Name(), "error", hce)
			return abort(hce, node, forward)
		}

		if !present {
			span.End()
			node = hookchain.Advance(node, forward)
			continue
		}

		switch outcome.ResultType {
		case hookchain.ResultContinue:
			if outcome.Request != nil {
				current = outcome.Request
			}
			span.End()
			last = node
			node = hookchain.Advance(node, forward)

		case hookchain.ResultRespond:
			span.End()
			return respond(outcome.Response, node, forward)

		case hookchain.ResultContinueAsync:
			span.End()
			return continueAsync(current, outcome.Response, outcome.Callback, node, forward)

		default:
			span.End()
			last = node
			node = hookchain.Advance(node, forward)
		}
	}

	return continueRequest(current, last, forward)
}

// ProcessResponse walks the chain's response phase for either a successful
// result or an error, mirroring the request phase in reverse starting from
// startNode. Exactly one of result or respErr is meaningful; result == nil
// with respErr != nil means the target (or an earlier hook) raised an
// error. A hook converts an error into a result by returning a Response,
// and a result into an error by returning an error from its handler; the
// walk goes on toward the source in both cases.
//
// skip, when non-nil, is a node the traversal passes over without invoking:
// the node that returned continueAsync for this request already delivered
// its verdict out of band and must not see the real result a second time
// through its result/error handler, even though the response phase still
// walks past its position to reach the hooks on the other side of it.
func (p *Processor) ProcessResponse(ctx context.Context, entry mcp.TaxonomyEntry, result *mcp.Message, respErr error, startNode *hookchain.Node, requestForward bool, origReq *mcp.Message, extra *reqctx.Extra, skip *hookchain.Node) Outcome {
	forward := !requestForward
	node := startNode

	currentResult := result
	currentErr := respErr

	for node != nil {
		if node == skip {
			node = hookchain.Advance(node, forward)
			continue
		}

		methodName := entry.Methods.Result
		var args []interface{}
		if currentErr != nil {
			methodName = entry.Methods.Error
			args = []interface{}{hookerr.Adapt(currentErr), origReq, extra}
		} else {
			args = []interface{}{currentResult, origReq, extra}
		}

		ctx, span := p.startSpan(ctx, node, methodName, "response")

		outcome, err, present := hookchain.Invoke(ctx, node, methodName, args...)
		if err != nil {
			hce := hookerr.Adapt(err)
			span.RecordError(hce)
			span.SetStatus(codes.Error, hce.Error())
			span.End()
			currentResult = nil
			currentErr = hce
			node = hookchain.Advance(node, forward)
			continue
		}

		if !present {
			span.End()
			node = hookchain.Advance(node, forward)
			continue
		}

		switch outcome.ResultType {
		case hookchain.ResultContinue:
			if outcome.Response != nil {
				currentResult = outcome.Response
				currentErr = nil
			}
			span.End()
			node = hookchain.Advance(node, forward)

		case hookchain.ResultContinueAsync:
			span.End()
			return continueAsync(currentResult, outcome.Response, outcome.Callback, node, forward)

		default:
			// ResultRespond in the response phase is handled like
			// ResultContinue: a supplied Response replaces the current
			// result, or recovers the current error into a result.
			if outcome.Response != nil {
				currentResult = outcome.Response
				currentErr = nil
			}
			span.End()
			node = hookchain.Advance(node, forward)
		}
	}

	if currentErr != nil {
		return abort(hookerr.Adapt(currentErr), nil, forward)
	}
	return continueResponse(currentResult, nil, forward)
}

// ProcessNotification walks the chain's single-pass notification phase.
// Notifications have no response leg: ResultRespond and ResultContinueAsync
// are both invalid outcomes here and are treated as ResultContinue with
// whatever Notification payload the hook returned, since a notification
// that disappears silently would violate delivery expectations.
func (p *Processor) ProcessNotification(ctx context.Context, entry mcp.TaxonomyEntry, msg *mcp.Message, extra *reqctx.Extra) Outcome {
	forward := forwardForRequestPhase(msg.Direction)
	node := p.chain.StartNode(forward)
	current := msg

	for node != nil {
		ctx, span := p.startSpan(ctx, node, entry.Methods.Request, "notification")

		outcome, err, present := hookchain.Invoke(ctx, node, entry.Methods.Request, current, extra)
		if err != nil {
			hce := hookerr.Adapt(err)
			span.RecordError(hce)
			span.SetStatus(codes.Error, hce.Error())
			span.End()
			return abort(hce, node, forward)
		}

		if present && outcome.Notification != nil {
			current = outcome.Notification
		}
		span.End()
		node = hookchain.Advance(node, forward)
	}

	return continueNotification(current, nil, forward)
}

// hookSpan wraps the otel span for one hook invocation so End() can also
// report the invocation's wall-clock duration to an optional recorder,
// without every call site that ends a span needing to know about metrics.
type hookSpan struct {
	trace.Span
	hook      string
	phase     string
	start     time.Time
	durations HookDurationRecorder
}

func (s *hookSpan) End(options ...trace.SpanEndOption) {
	s.Span.End(options...)
	if s.durations != nil {
		s.durations.Observe(s.hook, s.phase, time.Since(s.start).Seconds())
	}
}

func (p *Processor) startSpan(ctx context.Context, node *hookchain.Node, method, phase string) (context.Context, *hookSpan) {
	ctx, span := p.tracer.Start(ctx, "hook."+phase,
		trace.WithAttributes(
			attribute.String("hook.name", node.Hook().Name()),
			attribute.String("hook.method", method),
			attribute.String("hook.phase", phase),
		),
	)
	return ctx, &hookSpan{Span: span, hook: node.Hook().Name(), phase: phase, start: time.Now(), durations: p.durations}
}
