// Package control owns the job/interlock state machine shared by the HTTP API
// and the presentation layer.
package control

import "fmt"

// RunState represents the lifecycle state of the controlled job.
type RunState string

// Run states reported by Status.
const (
	StateIdle    RunState = "Idle"
	StateRunning RunState = "Running"
	StateError   RunState = "Error"
)

// Status is the observable job state.
type Status struct {
	State RunState `json:"state"`
	Speed int      `json:"speed"`
}

// Limits bounds accepted speeds, inclusive on both ends.
type Limits struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultLimits is the speed range accepted by Controller.Start.
var DefaultLimits = Limits{Min: 1, Max: 1000}

// Contains reports whether speed lies within the limits.
func (l Limits) Contains(speed int) bool {
	return speed >= l.Min && speed <= l.Max
}

func (l Limits) String() string {
	return fmt.Sprintf("[%d, %d]", l.Min, l.Max)
}

// Outcome tags how an accepted start or stop request ended.
type Outcome string

// Outcomes carried by Result.
const (
	OutcomeApplied Outcome = "applied"
	OutcomeFaulted Outcome = "faulted"
)

// Result is returned by Start and Stop once a request passed validation.
// A faulted result is not an error for the caller: the fault is recorded in
// Fault, logged, and visible as StateError.
type Result struct {
	Status  Status
	Outcome Outcome
	Fault   error
}

// Faulted reports whether the driver failed while applying the request.
func (r Result) Faulted() bool {
	return r.Outcome == OutcomeFaulted
}
