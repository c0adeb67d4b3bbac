// Package viewmodel mirrors the job controller through observable properties
// and commands for interactive front ends.
package viewmodel

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobcontrol/internal/config"
	"github.com/JakeFAU/jobcontrol/internal/control"
)

// Property names an observable value.
type Property string

// Observable properties.
const (
	PropStatus          Property = "Status"
	PropInterlockActive Property = "InterlockActive"
	PropSpeed           Property = "Speed"
	PropSpeedText       Property = "SpeedText"
	PropMessage         Property = "Message"
	PropLastUpdated     Property = "LastUpdated"
)

// Controller is the subset of control.Controller the view model drives.
type Controller interface {
	Start(ctx context.Context, speed int) (control.Result, error)
	Stop(ctx context.Context) control.Result
	EmergencyStop() control.Status
	Status() control.Status
	RefreshInterlock() bool
}

// Settings bounds the speed an operator may enter.
type Settings struct {
	DefaultSpeed int
	MinSpeed     int
	MaxSpeed     int
}

// DefaultSettings matches the controller's HTTP limits.
var DefaultSettings = Settings{DefaultSpeed: 100, MinSpeed: 1, MaxSpeed: 1000}

// SettingsFromConfig extracts the control section.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		DefaultSpeed: cfg.Control.DefaultSpeed,
		MinSpeed:     cfg.Control.MinSpeed,
		MaxSpeed:     cfg.Control.MaxSpeed,
	}
}

// ViewModel holds UI state. Out-of-range speed writes are ignored rather than
// reported, unlike the HTTP surface.
type ViewModel struct {
	ctrl     Controller
	clock    control.Clock
	settings Settings
	logger   *zap.Logger

	mu          sync.Mutex
	status      control.RunState
	interlock   bool
	speed       int
	speedText   string
	message     string
	lastUpdated time.Time

	subs listeners[Property]

	StartCmd *AsyncCommand
	StopCmd  *AsyncCommand
	EStopCmd *SyncCommand
}

// New reads the controller's current state and returns a ready view model.
func New(ctrl Controller, clock control.Clock, settings Settings, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	speed := settings.DefaultSpeed
	if speed < settings.MinSpeed || speed > settings.MaxSpeed {
		speed = settings.MinSpeed
	}
	vm := &ViewModel{
		ctrl:        ctrl,
		clock:       clock,
		settings:    settings,
		logger:      logger,
		status:      ctrl.Status().State,
		interlock:   ctrl.RefreshInterlock(),
		speed:       speed,
		speedText:   strconv.Itoa(speed),
		lastUpdated: clock.Now(),
	}
	vm.StartCmd = NewAsyncCommand(func(ctx context.Context) error {
		vm.Start(ctx)
		return nil
	}, func() bool { return !vm.InterlockActive() })
	vm.StopCmd = NewAsyncCommand(func(ctx context.Context) error {
		vm.Stop(ctx)
		return nil
	}, func() bool { return vm.Status() == control.StateRunning })
	vm.EStopCmd = NewSyncCommand(vm.EmergencyStop, nil)

	logger.Info("View model initialized",
		zap.String("status", string(vm.status)),
		zap.Bool("interlock_active", vm.interlock),
		zap.Int("speed", speed),
	)
	return vm
}

// Settings returns the configured speed bounds.
func (vm *ViewModel) Settings() Settings { return vm.settings }

// Status returns the observed run state.
func (vm *ViewModel) Status() control.RunState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.status
}

// InterlockActive returns the interlock value seen by the last refresh.
func (vm *ViewModel) InterlockActive() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.interlock
}

// Speed returns the speed the next start will request.
func (vm *ViewModel) Speed() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.speed
}

// SpeedText returns the raw speed input.
func (vm *ViewModel) SpeedText() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.speedText
}

// Message returns a short description of the last operation.
func (vm *ViewModel) Message() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.message
}

// LastUpdated returns when the run state last changed.
func (vm *ViewModel) LastUpdated() time.Time {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.lastUpdated
}

// Subscribe registers fn for property changes. fn runs on the goroutine that
// made the change.
func (vm *ViewModel) Subscribe(fn func(Property)) (unsubscribe func()) {
	return vm.subs.add(fn)
}

// SetSpeed stores speed if it lies within the configured bounds and reports
// whether it was accepted.
func (vm *ViewModel) SetSpeed(speed int) bool {
	if !vm.inRange(speed) {
		return false
	}
	vm.mu.Lock()
	if vm.speed == speed && vm.speedText == strconv.Itoa(speed) {
		vm.mu.Unlock()
		return true
	}
	vm.speed = speed
	vm.speedText = strconv.Itoa(speed)
	vm.mu.Unlock()
	vm.notify(PropSpeed, PropSpeedText)
	return true
}

// SetSpeedText stores text and updates Speed only when it parses to an
// in-range integer.
func (vm *ViewModel) SetSpeedText(text string) {
	changed := []Property{}
	vm.mu.Lock()
	if vm.speedText != text {
		vm.speedText = text
		changed = append(changed, PropSpeedText)
	}
	if v, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && vm.inRange(v) && v != vm.speed {
		vm.speed = v
		changed = append(changed, PropSpeed)
	}
	vm.mu.Unlock()
	vm.notify(changed...)
}

// Start asks the controller to run at Speed. Outcomes are reported through
// Status, Message, and the log.
func (vm *ViewModel) Start(ctx context.Context) {
	if vm.RefreshInterlock() {
		vm.logger.Warn("Start command blocked due to active interlock")
		vm.setMessage("Start blocked: interlock active")
		return
	}

	speed := vm.Speed()
	vm.logger.Info("Starting job with speed", zap.Int("speed", speed))
	res, err := vm.ctrl.Start(ctx, speed)
	switch {
	case errors.Is(err, control.ErrInterlockActive):
		vm.logger.Warn("Start command blocked due to active interlock")
		vm.setInterlock(true)
		vm.setMessage("Start blocked: interlock active")
		return
	case err != nil:
		vm.logger.Warn("Start request rejected", zap.Int("speed", speed), zap.Error(err))
		vm.setMessage("Start rejected: " + err.Error())
		return
	}

	vm.setStatus(res.Status.State)
	if res.Faulted() {
		vm.logger.Error("Failed to start job", zap.Int("speed", speed), zap.Error(res.Fault))
		vm.setMessage("Start failed: " + res.Fault.Error())
		return
	}
	vm.logger.Info("Job started successfully", zap.Int("speed", speed))
	vm.setMessage("Running at " + strconv.Itoa(speed))
}

// Stop asks the controller to stop the job.
func (vm *ViewModel) Stop(ctx context.Context) {
	vm.logger.Info("Stopping job")
	res := vm.ctrl.Stop(ctx)
	vm.setStatus(res.Status.State)
	if res.Faulted() {
		vm.logger.Error("Failed to stop job", zap.Error(res.Fault))
		vm.setMessage("Stop failed: " + res.Fault.Error())
		return
	}
	vm.logger.Info("Job stopped successfully")
	vm.setMessage("Stopped")
}

// EmergencyStop forces the job idle. It cannot fail.
func (vm *ViewModel) EmergencyStop() {
	st := vm.ctrl.EmergencyStop()
	vm.logger.Warn("Emergency stop activated")
	vm.setStatus(st.State)
	vm.setMessage("Emergency stop")
}

// RefreshInterlock re-reads the interlock and the run state, both of which
// can change through other clients, and returns the interlock value.
func (vm *ViewModel) RefreshInterlock() bool {
	active := vm.ctrl.RefreshInterlock()
	vm.setInterlock(active)
	vm.setStatus(vm.ctrl.Status().State)
	return active
}

func (vm *ViewModel) inRange(speed int) bool {
	return speed >= vm.settings.MinSpeed && speed <= vm.settings.MaxSpeed
}

func (vm *ViewModel) setStatus(state control.RunState) {
	vm.mu.Lock()
	if vm.status == state {
		vm.mu.Unlock()
		return
	}
	vm.status = state
	vm.lastUpdated = vm.clock.Now()
	vm.mu.Unlock()
	vm.notify(PropStatus, PropLastUpdated)
}

func (vm *ViewModel) setInterlock(active bool) {
	vm.mu.Lock()
	if vm.interlock == active {
		vm.mu.Unlock()
		return
	}
	vm.interlock = active
	vm.mu.Unlock()
	vm.notify(PropInterlockActive)
}

func (vm *ViewModel) setMessage(msg string) {
	vm.mu.Lock()
	if vm.message == msg {
		vm.mu.Unlock()
		return
	}
	vm.message = msg
	vm.mu.Unlock()
	vm.notify(PropMessage)
}

func (vm *ViewModel) notify(props ...Property) {
	for _, p := range props {
		vm.subs.fire(p)
		switch p {
		case PropStatus:
			vm.StopCmd.RaiseCanExecuteChanged()
		case PropInterlockActive:
			vm.StartCmd.RaiseCanExecuteChanged()
		}
	}
}
