// Package audit records controller decisions. Events are stamped by the
// controller, handed to a non-blocking Hub, batched on a background goroutine,
// and fanned out to sinks such as the zap log, Prometheus collectors, or the
// bounded history served by the API.
package audit
