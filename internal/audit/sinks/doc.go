// Package sinks provides audit.Sink implementations: structured logging,
// Prometheus metrics, and a bounded in-memory history.
package sinks
