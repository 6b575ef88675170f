package pipeline

import (
	"context"

	"github.com/passline/mcp-gate/internal/hookchain"
	"github.com/passline/mcp-gate/internal/hookerr"
	"github.com/passline/mcp-gate/internal/reqctx"
	"github.com/passline/mcp-gate/pkg/mcp"
)

// ResumeRequest continues a request-phase walk starting at the node after
// afterNode, in the given direction, for the hooks a continueAsync call left
// unvisited. It shares ProcessRequest's per-node semantics exactly — a
// second continueAsync here is returned to the caller rather than handled
// recursively, since only the Passthrough Context (which owns spawning the
// detached task and the eventual callback delivery) can decide whether to
// nest another detached continuation or flatten it into the same one.
func (p *Processor) ResumeRequest(ctx context.Context, entry mcp.TaxonomyEntry, msg *mcp.Message, extra *reqctx.Extra, afterNode *hookchain.Node, forward bool) Outcome {
	node := hookchain.Advance(afterNode, forward)
	current := msg
	last := afterNode

	for node != nil {
		ctx, span := p.startSpan(ctx, node, entry.Methods.Request, "request")

		outcome, err, present := hookchain.Invoke(ctx, node, entry.Methods.Request, current, extra)
		if err != nil {
			hce := hookerr.Adapt(err)
			span.End()
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
