// Package metric provides Prometheus metrics for kasb.
//
// The Registry owns a private prometheus.Registry so tests and the CLI can
// gather collectors without touching the global default registry:
//
//   - kasb_api_attempts_total{method,outcome}: every HTTP attempt
//   - kasb_api_retries_total: attempts that were retried after backoff
//   - kasb_api_request_duration_seconds{method}: per-attempt latency
//
// Storage engines register their own gauges on the same registry.
package metric
