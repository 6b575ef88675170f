package mcptarget

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/passline/mcp-gate/internal/hookerr"
	"github.com/passline/mcp-gate/internal/jsonrpcpeer"
	"github.com/passline/mcp-gate/internal/port/outbound"
	"github.com/passline/mcp-gate/pkg/mcp"
)

const (
	scannerInitialBufSize = 256 * 1024
	scannerMaxBufSize     = 1024 * 1024
	maxResponseBodySize   = 10 * 1024 * 1024
)

// HTTPTarget connects to an MCP target server over Streamable HTTP: every
// outgoing message the Peer is handed becomes one POST to endpoint, and the
// response is bridged back onto the Peer's read side. It implements the
// outbound.Target port.
type HTTPTarget struct {
	endpoint   string
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
	ctx       context.Context
	cancel    context.CancelFunc

	reqR  *io.PipeReader
	reqW  *io.PipeWriter
	respR *io.PipeReader
	respW *io.PipeWriter

	wg   sync.WaitGroup
	done chan struct{}
}

// HTTPTargetOption configures an HTTPTarget.
type HTTPTargetOption func(*HTTPTarget)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPTargetOption {
	return func(t *HTTPTarget) { t.httpClient = client }
}

// NewHTTPTarget creates a target adapter for the given MCP server HTTP
// endpoint.
func NewHTTPTarget(endpoint string, opts ...HTTPTargetOption) *HTTPTarget {
	t := &HTTPTarget{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect starts the request-pumping goroutine and returns a Peer whose
// writes become POSTs and whose reads deliver the matching responses.
func (t *HTTPTarget) Connect(ctx context.Context) (*jsonrpcpeer.Peer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return nil, errors.New("target already connected")
	}

	t.ctx, t.cancel = context.WithCancel(ctx)
	t.reqR, t.reqW = io.Pipe()
	t.respR, t.respW = io.Pipe()
	t.done = make(chan struct{})

	t.wg.Add(1)
	go t.pump()

	return jsonrpcpeer.New(mcp.ServerToClient, t.respR, t.reqW), nil
}

// pump reads newline-delimited JSON messages written to the Peer and sends
// each as an HTTP POST, writing the response back onto the Peer's read side.
func (t *HTTPTarget) pump() {
	defer t.wg.Done()
	defer close(t.done)
	defer func() { _ = t.respW.Close() }()

	scanner := bufio.NewScanner(t.reqR)
	scanner.Buffer(make([]byte, 0, scannerInitialBufSize), scannerMaxBufSize)

	for scanner.Scan() {
		if t.ctx.Err() != nil {
			return
		}

		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		resp, err := t.send(raw)
		if err != nil {
			t.writeError(raw, err)
			continue
		}

		for len(resp) > 0 && resp[len(resp)-1] == '\n' {
			resp = resp[:len(resp)-1]
		}
		if _, err := t.respW.Write(resp); err != nil {
			return
		}
		if _, err := t.respW.Write([]byte("\n")); err != nil {
			return
		}
	}
}

func (t *HTTPTarget) send(body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(t.ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	t.mu.Lock()
	sessionID := t.sessionID
	t.mu.Unlock()
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.mu.Lock()
		t.sessionID = sid
		t.mu.Unlock()
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// writeError synthesizes a JSON-RPC error response for a request that could
// not reach the target, preserving the original request id when present.
func (t *HTTPTarget) writeError(rawRequest []byte, sendErr error) {
	var req struct {
		ID json.RawMessage `json:"id"`
	}
	_ = json.Unmarshal(rawRequest, &req)

	hce := hookerr.Adapt(fmt.Errorf("target unreachable: %w", sendErr))
	raw, err := hookerr.WriteJSONRPCError(req.ID, hce)
	if err != nil {
		return
	}
	_, _ = t.respW.Write(raw)
	_, _ = t.respW.Write([]byte("\n"))
}

// Wait blocks until the target connection's pump goroutine exits.
func (t *HTTPTarget) Wait() error {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done == nil {
		return errors.New("target not connected")
	}
	<-done
	return nil
}

// Close cancels any in-flight request and tears down the bridging pipes.
func (t *HTTPTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	var errs []error
	if t.reqW != nil {
		if err := t.reqW.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.reqR != nil {
		if err := t.reqR.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Compile-time check that HTTPTarget implements the Target port.
var _ outbound.Target = (*HTTPTarget)(nil)
