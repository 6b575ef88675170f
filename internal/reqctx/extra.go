// Package reqctx carries the per-request metadata a hook can read but does
// not travel on the wire: identity, session, auth, and free-form metadata
// supplied by the embedding application. It is distinct from
// mcp.RequestContext, which is carried on the mcp.Message itself and is
// likewise never written to the wire.
package reqctx

// AuthInfo is opaque embedder-supplied authentication context. The pipeline
// never interprets it; it only threads it through to hooks.
type AuthInfo = map[string]interface{}

// RequestInfo carries transport-level request metadata an embedding HTTP
// gateway may want hooks to see (method, remote address, and similar), kept
// opaque for the same reason as AuthInfo.
type RequestInfo = map[string]interface{}

// Extra is the per-request context object threaded through every hook
// invocation for a single request/response/notification lifecycle. It is
// built once when a request enters the pipeline and is immutable afterward:
// hooks read it, they never mutate it in place. A hook that needs to carry
// derived data to a later hook does so through the message payload or
// through its own request-scoped Meta key, never by writing back into Extra.
type Extra struct {
	// RequestID is the pipeline's own correlation id for this request,
	// independent of the JSON-RPC wire id, stable across continueAsync
	// resumption.
	RequestID string

	// SessionID identifies the logical session this request belongs to.
	// Empty for transports that have no session concept.
	SessionID string

	// AuthInfo is the embedder-supplied authentication context, if any.
	AuthInfo AuthInfo

	// Meta carries free-form request-scoped metadata, distinct from the
	// in-payload `_meta` object: this is pipeline-internal and never
	// serialized onto the wire.
	Meta map[string]interface{}

	// RequestInfo carries transport-level metadata about the inbound call.
	RequestInfo RequestInfo
}

// New builds an Extra for a fresh request. meta may be nil; an empty map is
// always allocated so hooks can read from it without a nil check.
func New(requestID, sessionID string, authInfo AuthInfo, meta map[string]interface{}, requestInfo RequestInfo) *Extra {
	if meta == nil {
		meta = make(map[string]interface{})
	}
	return &Extra{
		RequestID:   requestID,
		SessionID:   sessionID,
		AuthInfo:    authInfo,
		Meta:        meta,
		RequestInfo: requestInfo,
	}
}

// WithMeta returns a shallow copy of e with key set in its Meta map,
// leaving the receiver untouched. For hooks that need a derived value to
// accompany the request without mutating shared state in place.
func (e *Extra) WithMeta(key string, value interface{}) *Extra {
	clone := *e
	clone.Meta = make(map[string]interface{}, len(e.Meta)+1)
	for k, v := range e.Meta {
		clone.Meta[k] = v
	}
	clone.Meta[key] = value
	return &clone
}
