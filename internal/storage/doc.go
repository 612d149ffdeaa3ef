// Package storage provides the embedded key-value store kasb keeps local
// state in.
//
//   - kv.go: the KV interface and engine configuration
//   - badger.go: Badger v3 engine with background value-log GC
//   - memory.go: in-process engine used by tests
//   - sealed.go: wraps any KV with authenticated encryption
//
// The session store keeps exactly two keys here (auth.token, auth.user).
package storage
