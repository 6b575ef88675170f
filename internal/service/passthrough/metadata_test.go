package passthrough

import (
	"encoding/json"
	"testing"

	"github.com/passline/mcp-gate/internal/reqctx"
	"github.com/passline/mcp-gate/pkg/mcp"
)

func TestStampMetadataSetsSessionAndRequestID(t *testing.T) {
	msg := &mcp.Message{Raw: json.RawMessage(`{"jsonrpc":"2.0","method":"tools/call","params":{},"id":1}`)}
	extra := reqctx.New("req-1", "sess-1", nil, nil, nil)

	stamped := stampMetadata(msg, extra)

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(stamped.Raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	var params map[string]interface{}
	if err := json.Unmarshal(envelope["params"], &params); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	meta, ok := params["_meta"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a _meta object, got %v", params["_meta"])
	}
	if meta["sessionId"] != "sess-1" || meta["requestId"] != "req-1" {
		t.Fatalf("meta = %+v, want sessionId=sess-1 requestId=req-1", meta)
	}
}

func TestStampMetadataPreservesExistingMetaKeys(t *testing.T) {
	msg := &mcp.Message{Raw: json.RawMessage(`{"jsonrpc":"2.0","method":"tools/call","params":{"_meta":{"custom":"value"}},"id":1}`)}
	extra := reqctx.New("req-1", "sess-1", nil, nil, nil)

	stamped := stampMetadata(msg, extra)

	var envelope map[string]json.RawMessage
	_ = json.Unmarshal(stamped.Raw, &envelope)
	var params map[string]interface{}
	_ = json.Unmarshal(envelope["params"], &params)
	meta := params["_meta"].(map[string]interface{})
	if meta["custom"] != "value" {
		t.Fatalf("expected pre-existing _meta key to survive, got %+v", meta)
	}
}

func TestStampResponseMetadataSetsSourceAndBothSessionIDs(t *testing.T) {
	msg := &mcp.Message{Raw: json.RawMessage(`{"jsonrpc":"2.0","result":{},"id":1}`)}

	stamped := stampResponseMetadata(msg, "source-sess", "target-sess")

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(stamped.Raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(envelope["result"], &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	meta, ok := result["_meta"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a _meta object, got %v", result["_meta"])
	}
	if meta["source"] != "passthrough-server" {
		t.Fatalf("meta.source = %v, want passthrough-server", meta["source"])
	}
	if meta["sourceSessionId"] != "source-sess" || meta["targetSessionId"] != "target-sess" {
		t.Fatalf("meta = %+v, want sourceSessionId=source-sess targetSessionId=target-sess", meta)
	}
	if _, hasSessionID := meta["sessionId"]; hasSessionID {
		t.Fatalf("response meta must not set the plain sessionId key, got %+v", meta)
	}
}

func TestStampResponseMetadataPreservesExistingMetaKeys(t *testing.T) {
	msg := &mcp.Message{Raw: json.RawMessage(`{"jsonrpc":"2.0","result":{"_meta":{"custom":"value"}},"id":1}`)}

	stamped := stampResponseMetadata(msg, "source-sess", "target-sess")

	var envelope map[string]json.RawMessage
	_ = json.Unmarshal(stamped.Raw, &envelope)
	var result map[string]interface{}
	_ = json.Unmarshal(envelope["result"], &result)
	meta := result["_meta"].(map[string]interface{})
	if meta["custom"] != "value" {
		t.Fatalf("expected pre-existing _meta key to survive, got %+v", meta)
	}
}
