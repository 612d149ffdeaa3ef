// Package service provides the authentication services of kasb.
//
// This package contains:
//
//   - SessionStore: the process-wide session, persisted in a KV store
//   - AuthAPI: typed calls to the backend auth endpoints
//   - Attempt: the login / registration dialog state machine with OTP
//     entry, resend cooldown and debounced auto-submit
//
// Services take their collaborators as interfaces so tests can replace
// the network and the clock.
package service
