package passthrough

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/passline/mcp-gate/internal/hookchain"
	"github.com/passline/mcp-gate/internal/jsonrpcpeer"
	"github.com/passline/mcp-gate/internal/reqctx"
	"github.com/passline/mcp-gate/pkg/mcp"
)

// recordingHook continues every request-phase call and records the method
// seen, so tests can assert the chain actually ran.
type recordingHook struct {
	mu   sync.Mutex
	seen []string
}

func (h *recordingHook) Name() string { return "recording" }

func (h *recordingHook) record(method string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, method)
}

func (h *recordingHook) OnToolsCallRequest(ctx context.Context, msg *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	h.record("tools/call")
	return hookchain.HookOutcome{ResultType: hookchain.ResultContinue, Request: msg}, nil
}

func TestContextForwardsRequestAndRoutesResponseBack(t *testing.T) {
	defer goleak.VerifyNone(t)

	hook := &recordingHook{}
	chain := hookchain.Build([]hookchain.Hook{hook})
	ctx := New(chain, nil, nil, Options{})

	sourceInR, sourceInW := io.Pipe()   // test writes requests here, as if it were the client
	sourceOutR, sourceOutW := io.Pipe() // test reads responses here
	targetInR, targetInW := io.Pipe()   // test reads forwarded requests here
	targetOutR, targetOutW := io.Pipe() // test writes target responses here

	source := jsonrpcpeer.New(mcp.ClientToServer, sourceInR, sourceOutW)
	target := jsonrpcpeer.New(mcp.ServerToClient, targetOutR, targetInW)
	ctx.Connect(source, target)

	runCtx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- ctx.Run(runCtx) }()

	go func() {
		_, _ = sourceInW.Write([]byte("{\"jsonrpc\":\"2.0\",\"method\":\"tools/call\",\"id\":1}\n"))
	}()

	forwarded := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := targetInR.Read(buf)
		forwarded <- string(buf[:n])
	}()

	select {
	case line := <-forwarded:
		if !strings.Contains(line, "tools/call") {
			t.Fatalf("forwarded request missing method: %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded request")
	}

	go func() {
		_, _ = targetOutW.Write([]byte("{\"jsonrpc\":\"2.0\",\"result\":{},\"id\":1}\n"))
	}()

	reply := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := sourceOutR.Read(buf)
		reply <- string(buf[:n])
	}()

	select {
	case line := <-reply:
		if !strings.Contains(line, "\"result\"") {
			t.Fatalf("expected a result reply, got %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the routed response")
	}

	cancel()
	_ = sourceInW.Close()
	_ = targetOutW.Close()
	<-runDone
	ctx.Close()

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.seen) != 1 || hook.seen[0] != "tools/call" {
		t.Fatalf("hook.seen = %v", hook.seen)
	}
}

// resultRecordingHook has no request handler but records every response-phase
// visit it receives, passing the result through unchanged.
type resultRecordingHook struct {
	mu   sync.Mutex
	seen []string
}

func (h *resultRecordingHook) Name() string { return "result-recording" }

func (h *resultRecordingHook) OnToolsCallResult(ctx context.Context, msg *mcp.Message, origReq *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	h.mu.Lock()
	h.seen = append(h.seen, "tools/call")
	h.mu.Unlock()
	return hookchain.HookOutcome{ResultType: hookchain.ResultContinue, Response: msg}, nil
}

// respondingRequestHook short-circuits every tools/call request with a
// synthetic response, never forwarding to the target.
type respondingRequestHook struct{}

func (h *respondingRequestHook) Name() string { return "responding" }

func (h *respondingRequestHook) OnToolsCallRequest(ctx context.Context, msg *mcp.Message, extra *reqctx.Extra) (hookchain.HookOutcome, error) {
	resp := &mcp.Message{Raw: []byte(`{"jsonrpc":"2.0","result":{"synthetic":true},"id":1}`)}
	return hookchain.HookOutcome{ResultType: hookchain.ResultRespond, Response: resp}, nil
}

func TestContextRespondShortCircuitStillRunsResponsePhase(t *testing.T) {
	defer goleak.VerifyNone(t)

	// H1 (closer to source) only has a result handler; H2 (closer to
	// target) short-circuits every request. Per the chain's pairing
	// invariant, H2's synthetic response must still be visible to H1.
	h1 := &resultRecordingHook{}
	h2 := &respondingRequestHook{}
	chain := hookchain.Build([]hookchain.Hook{h1, h2})
	ctx := New(chain, nil, nil, Options{})

	sourceInR, sourceInW := io.Pipe()
	sourceOutR, sourceOutW := io.Pipe()
	_, targetInW := io.Pipe()
	targetOutR, targetOutW := io.Pipe()

	source := jsonrpcpeer.New(mcp.ClientToServer, sourceInR, sourceOutW)
	target := jsonrpcpeer.New(mcp.ServerToClient, targetOutR, targetInW)
	ctx.Connect(source, target)

	runCtx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- ctx.Run(runCtx) }()

	go func() {
		_, _ = sourceInW.Write([]byte("{\"jsonrpc\":\"2.0\",\"method\":\"tools/call\",\"id\":1}\n"))
	}()

	reply := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := sourceOutR.Read(buf)
		reply <- string(buf[:n])
	}()

	select {
	case line := <-reply:
		if !strings.Contains(line, "synthetic") {
			t.Fatalf("expected the synthetic response on the source side, got %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the synthetic response")
	}

	cancel()
	_ = sourceInW.Close()
	_ = targetOutW.Close()
	<-runDone
	ctx.Close()

	h1.mu.Lock()
	defer h1.mu.Unlock()
	if len(h1.seen) != 1 || h1.seen[0] != "tools/call" {
		t.Fatalf("h1.seen = %v, want the respond short-circuit to still run H1's result handler", h1.seen)
	}
}

func TestRunRejectsWithoutTransports(t *testing.T) {
	chain := hookchain.Build(nil)
	ctx := New(chain, nil, nil, Options{})

	err := ctx.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error when Run is called before Connect")
	}
}
