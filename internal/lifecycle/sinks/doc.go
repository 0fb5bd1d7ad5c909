// Package sinks implements concrete lifecycle consumers such as Prometheus
// and structured logging. Each sink satisfies the lifecycle.Sink interface
// and is safe for repeated Consume/Close cycles.
package sinks
