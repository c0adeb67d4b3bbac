package control

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcontrol/internal/audit"
)

// Controller is the single access point to the job state machine. Every
// operation runs under one mutex, so concurrent HTTP requests and UI commands
// observe whole transitions only.
//
//	Idle    --start (interlock clear, speed valid)--> Running
//	Idle    --start (interlock active)-------------> Idle
//	Running --stop | emergency stop----------------> Idle
//	Running --start fault--------------------------> Error
//	Error   --stop---------------------------------> Idle
type Controller struct {
	mu sync.Mutex

	jobs    JobStore
	gate    InterlockGate
	driver  Driver
	clock   Clock
	ids     IDGenerator
	emitter audit.Emitter
	limits  Limits
	logger  *zap.Logger

	observedInterlock bool
}

// NewController wires the controller to its collaborators. emitter may be nil.
func NewController(
	jobs JobStore,
	gate InterlockGate,
	driver Driver,
	clock Clock,
	ids IDGenerator,
	emitter audit.Emitter,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		jobs:              jobs,
		gate:              gate,
		driver:            driver,
		clock:             clock,
		ids:               ids,
		emitter:           emitter,
		limits:            DefaultLimits,
		logger:            logger,
		observedInterlock: gate.Active(),
	}
}

// Limits returns the speed range accepted by Start.
func (c *Controller) Limits() Limits {
	return c.limits
}

// Status returns the current job status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobs.Load()
}

// Start validates speed, checks the interlock, and asks the driver to run.
// Cancellation of ctx is not passed on to the driver. It returns a *SpeedError or ErrInterlockActive when the request is refused;
// in both cases the job state is unchanged. A driver fault moves the job to
// StateError and is reported through Result, not as an error.
func (c *Controller) Start(ctx context.Context, speed int) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.jobs.Load()
	if !c.limits.Contains(speed) {
		err := &SpeedError{Speed: speed, Limits: c.limits}
		c.record(audit.ActionStartRejected, current, current, speed, err.Error())
		return Result{}, err
	}
	c.observeInterlock(c.gate.Active())
	if c.observedInterlock {
		c.logger.Warn("start blocked by interlock", zap.Int("speed", speed))
		c.record(audit.ActionStartBlocked, current, current, speed, "")
		return Result{}, ErrInterlockActive
	}

	if err := c.driver.Start(context.WithoutCancel(ctx), speed); err != nil {
		next := Status{State: StateError, Speed: current.Speed}
		c.jobs.Store(next)
		c.logger.Error("start fault", zap.Int("speed", speed), zap.Error(err))
		c.record(audit.ActionStartFault, current, next, speed, err.Error())
		return Result{Status: next, Outcome: OutcomeFaulted, Fault: err}, nil
	}

	next := Status{State: StateRunning, Speed: speed}
	c.jobs.Store(next)
	c.logger.Info("job running", zap.Int("speed", speed), zap.String("from", string(current.State)))
	c.record(audit.ActionStart, current, next, speed, "")
	return Result{Status: next, Outcome: OutcomeApplied}, nil
}

// Stop asks the driver to stop and returns the job to StateIdle with speed 0.
// It is idempotent and ignores cancellation of ctx. A driver fault moves the
// job to StateError instead.
func (c *Controller) Stop(ctx context.Context) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.jobs.Load()
	if err := c.driver.Stop(context.WithoutCancel(ctx)); err != nil {
		next := Status{State: StateError, Speed: current.Speed}
		c.jobs.Store(next)
		c.logger.Error("stop fault", zap.Error(err))
		c.record(audit.ActionStopFault, current, next, current.Speed, err.Error())
		return Result{Status: next, Outcome: OutcomeFaulted, Fault: err}
	}

	next := Status{State: StateIdle, Speed: 0}
	c.jobs.Store(next)
	c.logger.Info("job stopped", zap.String("from", string(current.State)))
	c.record(audit.ActionStop, current, next, 0, "")
	return Result{Status: next, Outcome: OutcomeApplied}
}

// EmergencyStop forces StateIdle without touching the driver or the speed.
// It cannot fail.
func (c *Controller) EmergencyStop() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.jobs.Load()
	next := Status{State: StateIdle, Speed: current.Speed}
	c.jobs.Store(next)
	c.logger.Warn("emergency stop", zap.String("from", string(current.State)))
	c.record(audit.ActionEmergencyStop, current, next, next.Speed, "")
	return next
}

// RefreshInterlock re-reads the gate, which may have been changed out of band,
// and returns the current value.
func (c *Controller) RefreshInterlock() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observeInterlock(c.gate.Active())
	return c.observedInterlock
}

// InterlockActive reads the gate without recording a change.
func (c *Controller) InterlockActive() bool {
	return c.gate.Active()
}

// SetInterlock writes the gate. Only stub gates are externally settable.
func (c *Controller) SetInterlock(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate.SetActive(active)
	c.observeInterlock(active)
}

func (c *Controller) observeInterlock(active bool) {
	if active == c.observedInterlock {
		return
	}
	c.observedInterlock = active
	c.logger.Info("interlock changed", zap.Bool("active", active))
	c.record(audit.ActionInterlock, Status{}, Status{}, 0, "")
}

func (c *Controller) record(action audit.Action, from, to Status, speed int, note string) {
	if c.emitter == nil {
		return
	}
	id, err := c.newID()
	if err != nil {
		c.logger.Warn("audit id generation failed", zap.Error(err))
		return
	}
	c.emitter.Emit(audit.Event{
		ID:        id,
		TS:        c.clock.Now(),
		Action:    action,
		From:      string(from.State),
		To:        string(to.State),
		Speed:     speed,
		Interlock: c.observedInterlock,
		Note:      note,
	})
}

func (c *Controller) newID() (uuid.UUID, error) {
	if c.ids == nil {
		return uuid.Nil, errors.New("no id generator configured")
	}
	return c.ids.NewRawID()
}
