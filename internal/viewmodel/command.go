package viewmodel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrCannotExecute is returned by Execute when the command is disabled.
var ErrCannotExecute = errors.New("command cannot execute")

// Command is a UI action with an enablement rule. Front ends subscribe to
// learn when CanExecute may have changed.
type Command interface {
	CanExecute() bool
	Execute(ctx context.Context) error
	OnCanExecuteChanged(fn func()) (unsubscribe func())
}

// listeners is a registry of callbacks that can be removed individually.
type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

// fire calls every registered callback outside the lock, so callbacks may
// subscribe or unsubscribe.
func (l *listeners[T]) fire(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// AsyncCommand runs a context-aware action and stays disabled while that
// action is in flight, so a second trigger cannot overlap the first.
type AsyncCommand struct {
	run       func(ctx context.Context) error
	canRun    func() bool
	executing atomic.Bool
	changed   listeners[struct{}]
}

// NewAsyncCommand builds an AsyncCommand. canRun may be nil.
func NewAsyncCommand(run func(ctx context.Context) error, canRun func() bool) *AsyncCommand {
	return &AsyncCommand{run: run, canRun: canRun}
}

// CanExecute reports whether the command is idle and its rule allows it.
func (c *AsyncCommand) CanExecute() bool {
	if c.executing.Load() {
		return false
	}
	return c.canRun == nil || c.canRun()
}

// Executing reports whether the action is in flight.
func (c *AsyncCommand) Executing() bool {
	return c.executing.Load()
}

// Execute runs the action on the calling goroutine. Callers that must not
// block dispatch it with go or a UI command.
func (c *AsyncCommand) Execute(ctx context.Context) error {
	if c.canRun != nil && !c.canRun() {
		return ErrCannotExecute
	}
	if !c.executing.CompareAndSwap(false, true) {
		return ErrCannotExecute
	}
	c.RaiseCanExecuteChanged()
	defer func() {
		c.executing.Store(false)
		c.RaiseCanExecuteChanged()
	}()
	return c.run(ctx)
}

// OnCanExecuteChanged registers fn and returns a function that removes it.
func (c *AsyncCommand) OnCanExecuteChanged(fn func()) func() {
	return c.changed.add(func(struct{}) { fn() })
}

// RaiseCanExecuteChanged notifies subscribers.
func (c *AsyncCommand) RaiseCanExecuteChanged() {
	c.changed.fire(struct{}{})
}

// SyncCommand runs a plain action.
type SyncCommand struct {
	run     func()
	canRun  func() bool
	changed listeners[struct{}]
}

// NewSyncCommand builds a SyncCommand. canRun may be nil.
func NewSyncCommand(run func(), canRun func() bool) *SyncCommand {
	return &SyncCommand{run: run, canRun: canRun}
}

// CanExecute reports whether the rule allows the command.
func (c *SyncCommand) CanExecute() bool {
	return c.canRun == nil || c.canRun()
}

// Execute runs the action. ctx is ignored.
func (c *SyncCommand) Execute(context.Context) error {
	if !c.CanExecute() {
		return ErrCannotExecute
	}
	c.run()
	return nil
}

// OnCanExecuteChanged registers fn and returns a function that removes it.
func (c *SyncCommand) OnCanExecuteChanged(fn func()) func() {
	return c.changed.add(func(struct{}) { fn() })
}

// RaiseCanExecuteChanged notifies subscribers.
func (c *SyncCommand) RaiseCanExecuteChanged() {
	c.changed.fire(struct{}{})
}
