// Package repl implements the interactive shell of kasb-cli.
//
// Each input line is split into words (quotes and backslash escapes are
// honoured) and handed to an Executor, which the command package wires to
// the same command tree used on the command line. exit, quit and history
// are handled here. Unknown commands get prefix suggestions from the
// Completer, and history persists across shells in ~/.kasb/history.
package repl
