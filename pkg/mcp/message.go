// Package mcp provides MCP message types and JSON-RPC codec utilities
// for the passthrough proxy.
package mcp

import (
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Direction indicates the flow direction of a message through the proxy.
type Direction int

const (
	// ClientToServer indicates a message flowing from the client (source) to the MCP server (target).
	ClientToServer Direction = iota
	// ServerToClient indicates a message flowing from the MCP server (target) to the client (source).
	ServerToClient
)

// String returns the string representation of the Direction.
func (d Direction) String() string {
	switch d {
	case ClientToServer:
		return "client->server"
	case ServerToClient:
		return "server->client"
	default:
		return "unknown"
	}
}

// Reversed returns the opposite direction. Response/error processing for a
// request that traveled the chain in one direction always traverses the
// chain in the mirror order, starting from the reversed direction.
func (d Direction) Reversed() Direction {
	if d == ClientToServer {
		return ServerToClient
	}
	return ClientToServer
}

// RequestContext is the optional sub-object attached to a Message that
// carries HTTP-layer details a hook may inspect or rewrite. Peers write only
// Message.Raw, so it never reaches the wire; nothing in the proxy fills it
// in, and its Headers are not applied to outgoing HTTP requests.
type RequestContext struct {
	// Headers are the originating (or hook-modified) HTTP request headers.
	Headers map[string]string `json:"headers,omitempty"`
	// Host is the HTTP host of the originating request.
	Host string `json:"host,omitempty"`
	// Path is the HTTP path of the originating request.
	Path string `json:"path,omitempty"`
}

// Clone returns a deep copy of the RequestContext, or nil if rc is nil.
func (rc *RequestContext) Clone() *RequestContext {
	if rc == nil {
		return nil
	}
	out := &RequestContext{Host: rc.Host, Path: rc.Path}
	if rc.Headers != nil {
		out.Headers = make(map[string]string, len(rc.Headers))
		for k, v := range rc.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// Message wraps a decoded JSON-RPC message with proxy metadata.
// It stores both the raw bytes (for efficient passthrough) and the decoded
// message (for hook inspection).
type Message struct {
	// Raw contains the original bytes of the message.
	// Used for passthrough when no modification is needed.
	Raw []byte

	// Direction indicates whether this message is flowing from
	// client to server or server to client.
	Direction Direction

	// Decoded contains the parsed JSON-RPC message.
	// May be nil if parsing failed but passthrough is still desired.
	// The concrete type is either *jsonrpc.Request or *jsonrpc.Response.
	Decoded jsonrpc.Message

	// Timestamp records when the message was received by the proxy.
	Timestamp time.Time

	// RequestContext carries HTTP-layer details (headers/host/path) a hook
	// may read or rewrite. Nil unless a hook sets it; never written to the
	// wire, since peers write only Raw.
	RequestContext *RequestContext

	// ParsedParams contains the parsed params of a JSON-RPC request.
	// Set by ParseParams() for reuse across hooks. Nil if not a request or
	// parsing fails.
	ParsedParams map[string]interface{}
}

// IsRequest returns true if the message is a JSON-RPC request (a call or a notification).
func (m *Message) IsRequest() bool {
	if m.Decoded == nil {
		return false
	}
	_, ok := m.Decoded.(*jsonrpc.Request)
	return ok
}

// IsResponse returns true if the message is a JSON-RPC response.
func (m *Message) IsResponse() bool {
	if m.Decoded == nil {
		return false
	}
	_, ok := m.Decoded.(*jsonrpc.Response)
	return ok
}

// IsNotification returns true if this is a request-shaped message with no ID.
// A JSON-RPC notification never admits a response.
func (m *Message) IsNotification() bool {
	req := m.Request()
	return req != nil && !req.IsCall()
}

// Method returns the method name if this is a request, empty string otherwise.
func (m *Message) Method() string {
	req := m.Request()
	if req == nil {
		return ""
	}
	return req.Method
}

// Request returns the underlying Request if this is a request message.
// Returns nil if this is not a request.
func (m *Message) Request() *jsonrpc.Request {
	if m.Decoded == nil {
		return nil
	}
	req, _ := m.Decoded.(*jsonrpc.Request)
	return req
}

// Response returns the underlying Response if this is a response message.
// Returns nil if this is not a response.
func (m *Message) Response() *jsonrpc.Response {
	if m.Decoded == nil {
		return nil
	}
	resp, _ := m.Decoded.(*jsonrpc.Response)
	return resp
}

// ParseParams parses the request params and stores them in ParsedParams.
// Safe to call multiple times (no-op if already parsed).
// Returns the parsed params, or nil if this is not a request or parsing fails.
func (m *Message) ParseParams() map[string]interface{} {
	if m.ParsedParams != nil {
		return m.ParsedParams
	}

	req := m.Request()
	if req == nil || req.Params == nil {
		return nil
	}

	var params map[string]interface{}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil
	}

	m.ParsedParams = params
	return params
}

// RawID extracts the request ID from the raw message bytes as json.RawMessage.
// The SDK's jsonrpc.ID type does not marshal correctly through interface{},
// so synthetic responses that need to echo an ID extract it directly from
// the raw JSON instead. Returns nil if no ID is found.
func (m *Message) RawID() json.RawMessage {
	if m.Raw == nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(m.Raw, &raw); err != nil {
		return nil
	}

	return raw["id"]
}
