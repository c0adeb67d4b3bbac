// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access to the job controller. Notable routes:
//   - POST /api/jobs/start?speed=N, /api/jobs/stop, /api/jobs/estop.
//   - GET /api/status for the current state and speed.
//   - GET/PUT /api/interlock to read or drive the stub interlock.
//   - GET /api/history for recent audit events.
//   - GET /health for liveness and GET /metrics for Prometheus scraping.
package api
