package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/passline/mcp-gate/internal/hookchain"
	"github.com/passline/mcp-gate/internal/hookerr"
	"github.com/passline/mcp-gate/internal/reqctx"
	"github.com/passline/mcp-gate/pkg/mcp"
)

func toolsCallRequestMessage() *mcp.Message {
	req := &jsonrpc.Request{Method: "tools/call"}
	return &mcp.Message{Direction: mcp.ClientToServer, Decoded: req}
}

func resultMessage() *mcp.Message {
	resp := &jsonrpc.Response{}
	return &mcp.Message{Direction: mcp.ServerToClient, Decoded: resp}
}

// passthroughHook implements no handler methods at all; the chain must skip
// it transparently in every phase.
type passthroughHook struct{ name string }

func (h *passthroughHook) Name() string { return h.name }

// taggingHook appends its own name to the shared tag slice so tests can
// assert traversal order, and always continues.
type taggingHook struct {
	name string
	tag  *[]string
}

func (h *taggingHook) Name() string { return h.name }

func (h *taggingHook) OnToolsCallRequest(ctx context.Context, msg *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	*h.tag = append(*h.tag, h.name)
	return hookchain.HookOutcome{ResultType: hookchain.ResultContinue, Request: msg}, nil
}

func (h *taggingHook) OnToolsCallResult(ctx context.Context, msg *mcp.Message, origReq *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	*h.tag = append(*h.tag, h.name+":result")
	return hookchain.HookOutcome{ResultType: hookchain.ResultContinue, Response: msg}, nil
}

// respondingHook short-circuits the request phase immediately.
type respondingHook struct{ name string }

func (h *respondingHook) Name() string { return h.name }

func (h *respondingHook) OnToolsCallRequest(ctx context.Context, msg *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	return hookchain.HookOutcome{ResultType: hookchain.ResultRespond, Response: resultMessage()}, nil
}

// failingHook always returns an error from its request handler.
type failingHook struct{ name string }

func (h *failingHook) Name() string { return h.name }

func (h *failingHook) OnToolsCallRequest(ctx context.Context, msg *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	return hookchain.HookOutcome{}, errors.New("boom")
}

// errorRecoveringHook converts an incoming error into a success response.
type errorRecoveringHook struct{ name string }

func (h *errorRecoveringHook) Name() string { return h.name }

func (h *errorRecoveringHook) OnToolsCallError(ctx context.Context, err *hookerr.HookChainError, origReq *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	return hookchain.HookOutcome{ResultType: hookchain.ResultContinue, Response: resultMessage()}, nil
}

func TestProcessRequestVisitsInOrderAndSkipsPassthrough(t *testing.T) {
	var order []string
	chain := hookchain.Build([]hookchain.Hook{
		&taggingHook{name: "a", tag: &order},
		&passthroughHook{name: "b"},
		&taggingHook{name: "c", tag: &order},
	})

	p := New(chain, nil, nil)
	entry := mcp.Lookup("tools/call", mcp.ClientToServer)
	extra := reqctx.New("req-1", "", nil, nil, nil)

	outcome := p.ProcessRequest(context.Background(), entry, toolsCallRequestMessage(), extra)

	if outcome.Kind != KindContinue {
		t.Fatalf("Kind = %v, want KindContinue", outcome.Kind)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "c" {
		t.Fatalf("traversal order = %v, want [a c]", order)
	}
	if outcome.LastProcessedNode != chain.Tail() {
		t.Fatalf("expected LastProcessedNode to be the tail on full completion")
	}
}

func TestProcessRequestRespondShortCircuits(t *testing.T) {
	var order []string
	chain := hookchain.Build([]hookchain.Hook{
		&taggingHook{name: "a", tag: &order},
		&respondingHook{name: "b"},
		&taggingHook{name: "c", tag: &order},
	})

	p := New(chain, nil, nil)
	entry := mcp.Lookup("tools/call", mcp.ClientToServer)
	extra := reqctx.New("req-1", "", nil, nil, nil)

	outcome := p.ProcessRequest(context.Background(), entry, toolsCallRequestMessage(), extra)

	if outcome.Kind != KindRespond {
		t.Fatalf("Kind = %v, want KindRespond", outcome.Kind)
	}
	if outcome.Response == nil {
		t.Fatal("expected a Response payload on KindRespond")
	}
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("traversal order = %v, want [a] (hook c must never run)", order)
	}
}

func TestProcessRequestAbortsOnHookError(t *testing.T) {
	chain := hookchain.Build([]hookchain.Hook{&failingHook{name: "a"}})
	p := New(chain, nil, nil)
	entry := mcp.Lookup("tools/call", mcp.ClientToServer)
	extra := reqctx.New("req-1", "", nil, nil, nil)

	outcome := p.ProcessRequest(context.Background(), entry, toolsCallRequestMessage(), extra)

	if outcome.Kind != KindAbort {
		t.Fatalf("Kind = %v, want KindAbort", outcome.Kind)
	}
	if outcome.Err == nil {
		t.Fatal("expected a non-nil Err on KindAbort")
	}
	var hce *hookerr.HookChainError
	if !errors.As(outcome.Err, &hce) {
		t.Fatalf("expected Err to be adapted into *hookerr.HookChainError, got %T", outcome.Err)
	}
}

func TestProcessRequestOnEmptyChainContinuesImmediately(t *testing.T) {
	chain := hookchain.Build(nil)
	p := New(chain, nil, nil)
	entry := mcp.Lookup("tools/call", mcp.ClientToServer)
	extra := reqctx.New("req-1", "", nil, nil, nil)

	msg := toolsCallRequestMessage()
	outcome := p.ProcessRequest(context.Background(), entry, msg, extra)

	if outcome.Kind != KindContinue || outcome.Request != msg {
		t.Fatalf("expected an immediate pass-through continue, got %+v", outcome)
	}
}

func TestProcessResponseMirrorsRequestPhaseInReverse(t *testing.T) {
	var order []string
	chain := hookchain.Build([]hookchain.Hook{
		&taggingHook{name: "a", tag: &order},
		&taggingHook{name: "b", tag: &order},
	})

	p := New(chain, nil, nil)
	entry := mcp.Lookup("tools/call", mcp.ClientToServer)
	extra := reqctx.New("req-1", "", nil, nil, nil)

	reqMsg := toolsCallRequestMessage()
	reqOutcome := p.ProcessRequest(context.Background(), entry, reqMsg, extra)
	order = nil // only care about response-phase order now

	respOutcome := p.ProcessResponse(context.Background(), entry, resultMessage(), nil, reqOutcome.LastProcessedNode, reqOutcome.Forward, reqMsg, extra, nil)

	if respOutcome.Kind != KindContinue {
		t.Fatalf("Kind = %v, want KindContinue", respOutcome.Kind)
	}
	if len(order) != 2 || order[0] != "b:result" || order[1] != "a:result" {
		t.Fatalf("response traversal order = %v, want [b:result a:result]", order)
	}
}

func TestProcessResponseErrorCanBeRecoveredIntoSuccess(t *testing.T) {
	chain := hookchain.Build([]hookchain.Hook{&errorRecoveringHook{name: "a"}})
	p := New(chain, nil, nil)
	entry := mcp.Lookup("tools/call", mcp.ClientToServer)
	extra := reqctx.New("req-1", "", nil, nil, nil)

	outcome := p.ProcessResponse(context.Background(), entry, nil, errors.New("upstream failed"), chain.Tail(), true, toolsCallRequestMessage(), extra, nil)

	if outcome.Kind != KindContinue {
		t.Fatalf("Kind = %v, want KindContinue (error recovered into success)", outcome.Kind)
	}
	if outcome.Response == nil {
		t.Fatal("expected a recovered Response")
	}
}

// respondingResultHook both short-circuits the request phase and records a
// response-phase visit if one ever reaches it, so tests can tell whether a
// synthetic respond outcome was actually fed through ProcessResponse.
type respondingResultHook struct {
	name string
	tag  *[]string
}

func (h *respondingResultHook) Name() string { return h.name }

func (h *respondingResultHook) OnToolsCallRequest(ctx context.Context, msg *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	*h.tag = append(*h.tag, h.name)
	return hookchain.HookOutcome{ResultType: hookchain.ResultRespond, Response: resultMessage()}, nil
}

func (h *respondingResultHook) OnToolsCallResult(ctx context.Context, msg *mcp.Message, origReq *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	*h.tag = append(*h.tag, h.name+":result")
	return hookchain.HookOutcome{ResultType: hookchain.ResultContinue, Response: msg}, nil
}

func TestProcessResponseAfterRespondVisitsRespondingNodeThenEarlierNodes(t *testing.T) {
	var order []string
	chain := hookchain.Build([]hookchain.Hook{
		&taggingHook{name: "a", tag: &order},
		&respondingResultHook{name: "b", tag: &order},
		&taggingHook{name: "c", tag: &order},
	})

	p := New(chain, nil, nil)
	entry := mcp.Lookup("tools/call", mcp.ClientToServer)
	extra := reqctx.New("req-1", "", nil, nil, nil)

	reqOutcome := p.ProcessRequest(context.Background(), entry, toolsCallRequestMessage(), extra)
	if reqOutcome.Kind != KindRespond {
		t.Fatalf("Kind = %v, want KindRespond", reqOutcome.Kind)
	}
	order = nil // only care about response-phase order now

	respOutcome := p.ProcessResponse(context.Background(), entry, reqOutcome.Response, nil, reqOutcome.LastProcessedNode, reqOutcome.Forward, toolsCallRequestMessage(), extra, nil)

	if respOutcome.Kind != KindContinue {
		t.Fatalf("Kind = %v, want KindContinue", respOutcome.Kind)
	}
	if len(order) != 2 || order[0] != "b:result" || order[1] != "a:result" {
		t.Fatalf("response traversal order = %v, want [b:result a:result] (H2 then H1, hook c never ran request phase)", order)
	}
}

func TestProcessResponseSkipsExcludedNode(t *testing.T) {
	var order []string
	chain := hookchain.Build([]hookchain.Hook{
		&taggingHook{name: "a", tag: &order},
		&taggingHook{name: "b", tag: &order},
	})

	p := New(chain, nil, nil)
	entry := mcp.Lookup("tools/call", mcp.ClientToServer)
	extra := reqctx.New("req-1", "", nil, nil, nil)

	reqOutcome := p.ProcessRequest(context.Background(), entry, toolsCallRequestMessage(), extra)
	order = nil

	respOutcome := p.ProcessResponse(context.Background(), entry, resultMessage(), nil, reqOutcome.LastProcessedNode, reqOutcome.Forward, toolsCallRequestMessage(), extra, chain.Tail())

	if respOutcome.Kind != KindContinue {
		t.Fatalf("Kind = %v, want KindContinue", respOutcome.Kind)
	}
	if len(order) != 1 || order[0] != "a:result" {
		t.Fatalf("response traversal order = %v, want [a:result] (b is the skipped async boundary)", order)
	}
}

func TestProcessNotificationSkipsHooksWithoutHandler(t *testing.T) {
	chain := hookchain.Build([]hookchain.Hook{&passthroughHook{name: "a"}})
	p := New(chain, nil, nil)
	entry := mcp.LookupNotification(mcp.ClientToServer)
	msg := &mcp.Message{Direction: mcp.ClientToServer, Decoded: &jsonrpc.Request{Method: "notifications/initialized"}}

	outcome := p.ProcessNotification(context.Background(), entry, msg, reqctx.New("req-1", "", nil, nil, nil))

	if outcome.Kind != KindContinue || outcome.Notification != msg {
		t.Fatalf("expected passthrough continuation, got %+v", outcome)
	}
}
