package control

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobStore holds the current job status.
type JobStore interface {
	Load() Status
	Store(status Status)
}

// InterlockGate exposes the "any interlock tripped" flag.
type InterlockGate interface {
	Active() bool
	SetActive(active bool)
}

// Driver performs the underlying job action. An error from either method is
// an internal fault.
type Driver interface {
	Start(ctx context.Context, speed int) error
	Stop(ctx context.Context) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces audit event IDs.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}
