// Package simulated provides a stand-in job drive. It accepts start and stop
// commands, remembers the commanded speed, and can be told to fault so the
// controller's error path is reachable without hardware.
package simulated

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrDriveFault is returned when a fault is injected.
var ErrDriveFault = errors.New("simulated drive fault")

// Config toggles fault injection.
type Config struct {
	FaultOnStart bool
	FaultOnStop  bool
}

// Driver implements control.Driver.
type Driver struct {
	mu      sync.Mutex
	cfg     Config
	running bool
	speed   int
	logger  *zap.Logger
}

// New constructs a Driver.
func New(cfg Config, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{cfg: cfg, logger: logger}
}

// Start spins the drive up to speed.
func (d *Driver) Start(ctx context.Context, speed int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("start drive: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.FaultOnStart {
		return fmt.Errorf("start drive at %d: %w", speed, ErrDriveFault)
	}
	d.running = true
	d.speed = speed
	d.logger.Debug("drive started", zap.Int("speed", speed))
	return nil
}

// Stop spins the drive down.
func (d *Driver) Stop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stop drive: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.FaultOnStop {
		return fmt.Errorf("stop drive: %w", ErrDriveFault)
	}
	d.running = false
	d.speed = 0
	d.logger.Debug("drive stopped")
	return nil
}

// SetFaults replaces the fault injection settings.
func (d *Driver) SetFaults(cfg Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
}

// Commanded reports whether the drive is running and at what speed.
func (d *Driver) Commanded() (bool, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running, d.speed
}
