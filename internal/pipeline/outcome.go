// Package pipeline implements the Pipeline Processor: the state machine that
// walks a hookchain.Chain for a single request, response, or notification
// and produces one of the outcomes defined in this file.
package pipeline

import (
	"github.com/passline/mcp-gate/internal/hookchain"
	"github.com/passline/mcp-gate/internal/reqctx"
	"github.com/passline/mcp-gate/pkg/mcp"
)

// Kind discriminates the outcome of a single ProcessRequest/ProcessResponse/
// ProcessNotification call.
type Kind int

const (
	// KindContinue means the phase ran to completion (forward phase reached
	// the tail, or response/notification phase exhausted its traversal) and
	// produced a final payload to forward onward.
	KindContinue Kind = iota
	// KindRespond means a request-phase hook short-circuited with a
	// synthetic response. Never produced by response or notification phase.
	KindRespond
	// KindContinueAsync means a hook returned an immediate synchronous
	// payload while committing to a later callback with the real outcome.
	KindContinueAsync
	// KindAbort means the phase ended in a terminal, unrecoverable error —
	// either raised directly or surfaced because a response/error phase ran
	// off the head of the chain without being absorbed.
	KindAbort
)

// Outcome is the result of a single Process* call. Exactly the fields
// implied by Kind are meaningful.
type Outcome struct {
	Kind Kind

	// Request is populated for KindContinue in the request phase: the
	// (possibly rewritten) request to forward to the target.
	Request *mcp.Message

	// Response is populated for KindContinue in the response phase and for
	// KindRespond and KindContinueAsync: the payload to return to the
	// source immediately.
	Response *mcp.Message

	// PendingRequest is populated only for KindContinueAsync: the
	// request-phase payload as of the node that returned it, for the
	// caller to resume the remaining chain against later.
	PendingRequest *mcp.Message

	// Notification is populated for KindContinue in the notification
	// phase: the (possibly rewritten) notification to forward.
	Notification *mcp.Message

	// Err is populated for KindAbort: the canonical error to surface.
	Err error

	// LastProcessedNode is the chain node the traversal stopped at — the
	// node whose outcome determined Kind. Response-phase traversal for this
	// request must start here and walk in the opposite direction. Nil when
	// the chain was empty or traversal reached past an end without any
	// hook claiming involvement.
	LastProcessedNode *hookchain.Node

	// Forward records the direction the request-phase traversal moved in,
	// so the response phase can mirror it in reverse per spec.md §4.C.2.
	Forward bool

	// Callback is populated for KindContinueAsync: the detached completion
	// delivered exactly once, later.
	Callback hookchain.AsyncCallback
}

// continueOutcome, respondOutcome, etc. are internal constructors used by
// the processor; they exist so call sites never build an Outcome with a
// mismatched Kind/field combination by hand.

func continueRequest(req *mcp.Message, node *hookchain.Node, forward bool) Outcome {
	return Outcome{Kind: KindContinue, Request: req, LastProcessedNode: node, Forward: forward}
}

func continueResponse(resp *mcp.Message, node *hookchain.Node, forward bool) Outcome {
	return Outcome{Kind: KindContinue, Response: resp, LastProcessedNode: node, Forward: forward}
}

func continueNotification(note *mcp.Message, node *hookchain.Node, forward bool) Outcome {
	return Outcome{Kind: KindContinue, Notification: note, LastProcessedNode: node, Forward: forward}
}

func respond(resp *mcp.Message, node *hookchain.Node, forward bool) Outcome {
	return Outcome{Kind: KindRespond, Response: resp, LastProcessedNode: node, Forward: forward}
}

func continueAsync(pending *mcp.Message, immediate *mcp.Message, cb hookchain.AsyncCallback, node *hookchain.Node, forward bool) Outcome {
	return Outcome{Kind: KindContinueAsync, PendingRequest: pending, Response: immediate, Callback: cb, LastProcessedNode: node, Forward: forward}
}

func abort(err error, node *hookchain.Node, forward bool) Outcome {
	return Outcome{Kind: KindAbort, Err: err, LastProcessedNode: node, Forward: forward}
}

// extraForChain is a type alias kept local so this package's public surface
// doesn't leak reqctx's internal shape beyond what Process* needs.
type extraForChain = *reqctx.Extra
