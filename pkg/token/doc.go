// Package token provides helpers for handling bearer tokens without
// exposing them: short fingerprints for logs and constant-time comparison.
package token
