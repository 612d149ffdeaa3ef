// Package connection provides the request client used to reach the kasb
// backend.
//
//   - http.go: Client, request/response types and the attempt loop
//   - retry.go: retry policy and backoff schedule
//   - errors.go: typed request failures and backend error bodies
//   - manager.go: holds the client shared by CLI commands
//
// Only failures without a response (network errors, per-attempt timeouts)
// and 5xx answers are retried. Any 4xx is returned after the first attempt.
package connection
