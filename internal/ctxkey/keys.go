// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

import (
	"context"
	"log/slog"
)

// LoggerKey is the context key type for the enriched logger. The
// Passthrough Context stores its logger under this key before invoking the
// hook chain, so a hook can log through the same sink as the proxy itself
// without needing one injected at construction time.
type LoggerKey struct{}

// LoggerFromContext returns the logger stored under LoggerKey, or
// slog.Default() if none was stored.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
