package httpmetrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/passline/mcp-gate/internal/hookchain"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// HealthChecker reports whether the hook chain and connected transports are
// in a usable state.
type HealthChecker struct {
	chain      *hookchain.Chain
	connected  func() bool
	version    string
}

// NewHealthChecker creates a HealthChecker. connected may be nil if liveness
// doesn't depend on transport state (e.g. before Connect is called).
func NewHealthChecker(chain *hookchain.Chain, connected func() bool, version string) *HealthChecker {
	return &HealthChecker{chain: chain, connected: connected, version: version}
}

// Check performs the health checks.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.chain != nil {
		checks["hook_chain"] = fmt.Sprintf("ok: %d hooks", h.chain.Len())
	} else {
		checks["hook_chain"] = "not configured"
	}

	if h.connected != nil {
		if h.connected() {
			checks["transport"] = "ok: connected"
		} else {
			checks["transport"] = "disconnected"
			healthy = false
		}
	} else {
		checks["transport"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return HealthResponse{Status: status, Checks: checks, Version: h.version}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}
