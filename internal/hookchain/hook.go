// Package hookchain builds the immutable, ordered sequence of Hooks the
// Pipeline Processor walks. A Hook is polymorphic over a capability set: it
// exposes a stable name and any subset of the taxonomy's handler methods.
// Absent methods are transparent pass-through. Capability discovery happens
// once, at chain-build time, via reflection over the taxonomy's method
// names, never per-message (see Build and probeAll in chain.go).
package hookchain

import (
	"github.com/passline/mcp-gate/pkg/mcp"
)

// Hook is the minimal identity every participant in the chain must provide.
// Everything else — which (method, phase) handlers it implements — is
// discovered by reflection against the method names in pkg/mcp's taxonomy,
// exactly as §4.F specifies: "the pipeline is given the three method names
// ... it tests for their presence on the hook at runtime."
type Hook interface {
	// Name returns a stable, human-readable identifier for the hook, used in
	// logs, traces, and "resume from here" diagnostics.
	Name() string
}

// HookOutcome is the tagged result a hook handler returns from any phase.
// Only the fields relevant to ResultType are meaningful; the others are
// zero. This mirrors the wire shape in spec.md §6 (the remote hook outcome
// payload) so an in-process Hook and a future RPC-backed Hook can share one
// result type.
type HookOutcome struct {
	ResultType HookResultType

	// Request carries the (possibly modified) request, valid after a
	// request-phase handler returns ResultContinue.
	Request *mcp.Message
	// Response carries a response/result payload. Valid for
	// ResultContinue (response phase) and ResultRespond.
	Response *mcp.Message
	// Notification carries a (possibly modified) notification, valid after
	// a notification handler returns ResultContinue.
	Notification *mcp.Message

	// Callback is populated only for ResultContinueAsync: invoked exactly
	// once, later, with the pipeline's eventual real outcome.
	Callback AsyncCallback
}

// AsyncCallback is invoked exactly once when a detached continueAsync task
// finishes, with either a final response or a terminal error (never both).
type AsyncCallback func(response *mcp.Message, err error)

// HookResultType is the discriminant of HookOutcome.
type HookResultType int

const (
	// ResultContinue carries the message onward to the next node.
	ResultContinue HookResultType = iota
	// ResultRespond short-circuits the request phase with a synthetic
	// response. In the response phase it is handled like ResultContinue.
	ResultRespond
	// ResultContinueAsync short-circuits synchronously with an immediate
	// response while committing to deliver the real outcome later via
	// Callback. Valid only for request-bearing, non-notification channels.
	ResultContinueAsync
)

// RequestHandler is the function shape every per-channel request-phase hook
// method must match: `func(ctx, *mcp.Message, *reqctx.Extra) (HookOutcome, error)`.
// Defined here as documentation; actual dispatch uses reflection because the
// taxonomy assigns a distinct method name per channel (OnToolsCallRequest,
// OnResourcesReadRequest, ...), not a single shared method.
type RequestHandler = interface{}

