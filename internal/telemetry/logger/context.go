package logger

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	commandKey
)

// WithRequestID tags ctx with the id sent as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id of ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithCommand tags ctx with the CLI command being run, so log lines of a
// shell session show which line produced them.
func WithCommand(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, commandKey, name)
}

// CommandFromContext returns the command of ctx, or "".
func CommandFromContext(ctx context.Context) string {
	name, _ := ctx.Value(commandKey).(string)
	return name
}
