// Package logger provides structured logging for kasb.
//
//   - logger.go: slog-backed Logger, level control and the default logger
//   - context.go: request id and command carried by context and added to every entry
//   - redact.go: masking of credentials and phone numbers
//
// The CLI logs to stderr so that command output on stdout stays parseable.
package logger
