// Package lifecycle defines the audit event stream emitted as orders move
// through their statuses, plus the Hub that batches events and fans them out
// to sinks (structured logs, Prometheus).
package lifecycle
