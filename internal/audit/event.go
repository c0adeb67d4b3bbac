package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action denotes the controller decision represented by an Event.
type Action string

// Supported audit actions.
const (
	ActionStart         Action = "start"
	ActionStartBlocked  Action = "start_blocked"
	ActionStartRejected Action = "start_rejected"
	ActionStartFault    Action = "start_fault"
	ActionStop          Action = "stop"
	ActionStopFault     Action = "stop_fault"
	ActionEmergencyStop Action = "estop"
	ActionInterlock     Action = "interlock"
)

// Event records a single controller decision.
type Event struct {
	// ID uniquely identifies the event (UUIDv7, time ordered).
	ID uuid.UUID `json:"id"`
	// TS is the UTC timestamp taken from the controller clock.
	TS time.Time `json:"ts"`
	// Action names the decision.
	Action Action `json:"action"`
	// From and To are the run states before and after the decision.
	From string `json:"from"`
	To   string `json:"to"`
	// Speed is the requested or resulting speed.
	Speed int `json:"speed"`
	// Interlock is the gate value observed when the decision was taken.
	Interlock bool `json:"interlock"`
	// Note carries low-volume context such as fault text.
	Note string `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.ID == uuid.Nil {
		return errors.New("event id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Action {
	case ActionStart, ActionStartBlocked, ActionStartRejected, ActionStartFault,
		ActionStop, ActionStopFault, ActionEmergencyStop:
		if e.From == "" || e.To == "" {
			return fmt.Errorf("%s requires from and to states", e.Action)
		}
	case ActionInterlock:
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	return nil
}

// Transitioned reports whether the event changed the run state.
func (e Event) Transitioned() bool {
	return e.From != e.To
}
