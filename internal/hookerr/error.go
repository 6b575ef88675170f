// Package hookerr normalizes arbitrary errors into the canonical shape that
// flows through the pipeline's response/error phase and onto the JSON-RPC
// wire.
package hookerr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Standard JSON-RPC 2.0 error codes this package produces directly.
// Protocol errors returned by the target are passed through with whatever
// code the target used.
const (
	// CodeInternalError is used for uncaught panics/errors inside a hook and
	// for any value Adapt cannot otherwise classify.
	CodeInternalError = -32603
	// CodeRequestRejected is used by the Passthrough Context when an
	// operation is attempted without the required transport connected.
	CodeRequestRejected = -32001
	// CodeRequestTimeout is used when an outbound call to the target exceeds
	// its deadline.
	CodeRequestTimeout = -32002
	// CodeAborted is used when a pipeline task is cancelled from outside
	// (transport-level cancellation).
	CodeAborted = -32003
	// CodeInvalidRequest mirrors the JSON-RPC 2.0 "Invalid Request" code,
	// used when the pipeline itself is invoked with an internally
	// inconsistent state (a diagnostic, not a peer-caused error).
	CodeInvalidRequest = -32600
)

// mcpErrorPrefix is prepended to the message of errors that already carry
// an MCP protocol error code, so the origin of the code is never lost when
// it is re-surfaced through a different hop.
const mcpErrorPrefix = "MCP error"

// HookChainError is the canonical error shape that flows through the
// pipeline's response/error phase. Anything thrown or returned by a hook, or
// received from the target transport, is normalized into this shape before
// downstream code ever sees it. A HookChainError that is adapted again is
// returned unchanged (idempotent).
type HookChainError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *HookChainError) Error() string {
	return fmt.Sprintf("hookchain error %d: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As chains that pass a HookChainError
// through intermediate fmt.Errorf wrapping.
func (e *HookChainError) Unwrap() error {
	return nil
}

// New constructs a HookChainError directly.
func New(code int, message string, data interface{}) *HookChainError {
	return &HookChainError{Code: code, Message: message, Data: data}
}

// mcpProtocolError is the shape an MCP-aware error may implement to carry a
// protocol error code through the adapter untouched. Concrete MCP client/
// server libraries in the ecosystem define their own error types; hooks that
// want code-preserving propagation implement this interface rather than
// relying on string sniffing.
type mcpProtocolError interface {
	error
	MCPErrorCode() int
}

// Adapt converts an arbitrary caught value into a *HookChainError without
// losing information. Rules, in order:
//
//  1. Already a *HookChainError -> returned unchanged.
//  2. Implements mcpProtocolError -> code preserved, message reformatted
//     with the MCP error prefix.
//  3. A Go error -> code -32603, message from Error(), data carries the
//     error's type name for diagnostics.
//  4. A string -> code -32603, message is the string.
//  5. nil -> code -32603, message "null".
//  6. Anything else -> stringified via %v, code -32603.
func Adapt(v interface{}) *HookChainError {
	if v == nil {
		return New(CodeInternalError, "null", nil)
	}

	if hce, ok := v.(*HookChainError); ok {
		return hce
	}

	if err, ok := v.(error); ok {
		var mcpErr mcpProtocolError
		if errors.As(err, &mcpErr) {
			return New(mcpErr.MCPErrorCode(), fmt.Sprintf("%s: %s", mcpErrorPrefix, mcpErr.Error()), nil)
		}

		var hce *HookChainError
		if errors.As(err, &hce) {
			return hce
		}

		return New(CodeInternalError, err.Error(), map[string]interface{}{
			"name": fmt.Sprintf("%T", err),
		})
	}

	if s, ok := v.(string); ok {
		return New(CodeInternalError, s, nil)
	}

	return New(CodeInternalError, fmt.Sprintf("%v", v), nil)
}

// Recover wraps a recover() result for deferred panic guards around hook
// invocation. Call as `hookerr.Recover(recover())`; returns nil when there
// was nothing to recover.
func Recover(recovered interface{}) *HookChainError {
	if recovered == nil {
		return nil
	}
	return Adapt(recovered)
}

// ToJSONRPCError renders a HookChainError as the `error` object of a
// JSON-RPC 2.0 response, ready to be embedded under the `"error"` key.
func (e *HookChainError) ToJSONRPCError() map[string]interface{} {
	obj := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Data != nil {
		obj["data"] = e.Data
	}
	return obj
}

// WriteJSONRPCError marshals a complete JSON-RPC 2.0 error response for the
// given raw (possibly null) request ID.
func WriteJSONRPCError(id json.RawMessage, e *HookChainError) ([]byte, error) {
	if id == nil {
		id = json.RawMessage("null")
	}
	envelope := struct {
		JSONRPC string          `json:"jsonrpc"`
		Error   map[string]any  `json:"error"`
		ID      json.RawMessage `json:"id"`
	}{
		JSONRPC: "2.0",
		Error:   e.ToJSONRPCError(),
		ID:      id,
	}
	return json.Marshal(envelope)
}
