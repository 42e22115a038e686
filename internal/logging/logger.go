// Package logging is the structured logger handed to every buildbio
// component. NewJSONLogger and Nop are the slog-backed implementations.
package logging

import "context"

// Logger takes a request context first so handlers can attach trace data,
// then a message and alternating key/value args:
//
//	log.Warn(ctx, "rate limit exceeded", "action", action, "scope", scope)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds args to every record of the returned logger, e.g. the
	// "module" key each service sets once.
	With(args ...any) Logger
}
