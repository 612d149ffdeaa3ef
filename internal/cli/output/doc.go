// Package output renders command results for kasb-cli.
//
// Results are written as an aligned table (default), JSON or YAML. Table
// columns come from struct fields; the `table` tag hides a field ("-") or
// shows it only in wide mode ("wide"). JSON and YAML follow `json` tags so
// the three formats name fields the same way.
//
// Spinner animates long requests when stdout is a terminal.
package output
