package passthrough

import (
	"encoding/json"
	"time"

	"github.com/passline/mcp-gate/internal/reqctx"
	"github.com/passline/mcp-gate/pkg/mcp"
)

// stampMetadata attaches a `_meta` object (proxy session id, request id, and
// a processing timestamp) under the top-level params (for requests and
// notifications) or result (for responses), preserving any `_meta` keys a hook
// already set. It re-marshals msg.Raw; a message whose Decoded payload isn't
// a plain JSON object at that level is returned unchanged.
func stampMetadata(msg *mcp.Message, extra *reqctx.Extra) *mcp.Message {
	if msg == nil || msg.Raw == nil {
		return msg
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(msg.Raw, &envelope); err != nil {
		return msg
	}

	field := "params"
	if _, isResult := envelope["result"]; isResult {
		field = "result"
	}

	var body map[string]interface{}
	if raw, ok := envelope[field]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return msg
		}
	}
	if body == nil {
		body = make(map[string]interface{})
	}

	meta, _ := body["_meta"].(map[string]interface{})
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["sessionId"] = extra.SessionID
	meta["requestId"] = extra.RequestID
	meta["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	body["_meta"] = meta

	bodyRaw, err := json.Marshal(body)
	if err != nil {
		return msg
	}
	envelope[field] = bodyRaw

	raw, err := json.Marshal(envelope)
	if err != nil {
		return msg
	}

	clone := *msg
	clone.Raw = raw
	return &clone
}

// stampResponseMetadata attaches the response `_meta` block spec.md §6
// defines: `source`, `timestamp`, `sourceSessionId`, and `targetSessionId`.
// It preserves any `_meta` keys a hook already set, the same way
// stampMetadata does for requests and notifications, but intentionally does
// not set sessionId/requestId: a response's wire identity is the
// source/target session pair, not the pipeline-internal request id.
func stampResponseMetadata(msg *mcp.Message, sourceSessionID, targetSessionID string) *mcp.Message {
	if msg == nil || msg.Raw == nil {
		return msg
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(msg.Raw, &envelope); err != nil {
		return msg
	}

	var body map[string]interface{}
	if raw, ok := envelope["result"]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return msg
		}
	}
	if body == nil {
		body = make(map[string]interface{})
	}

	meta, _ := body["_meta"].(map[string]interface{})
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["source"] = "passthrough-server"
	meta["sourceSessionId"] = sourceSessionID
	meta["targetSessionId"] = targetSessionID
	meta["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	body["_meta"] = meta

	bodyRaw, err := json.Marshal(body)
	if err != nil {
		return msg
	}
	envelope["result"] = bodyRaw

	raw, err := json.Marshal(envelope)
	if err != nil {
		return msg
	}

	clone := *msg
	clone.Raw = raw
	return &clone
}
