package memory

import "sync/atomic"

// InterlockGate is a settable stand-in for a hardware interlock chain. It
// reports a single "any interlock tripped" flag, initially false.
type InterlockGate struct {
	active atomic.Bool
}

// NewInterlockGate constructs a gate with no interlock tripped.
func NewInterlockGate() *InterlockGate {
	return &InterlockGate{}
}

// Active reports whether any interlock is tripped.
func (g *InterlockGate) Active() bool {
	return g.active.Load()
}

// SetActive trips or clears the interlock.
func (g *InterlockGate) SetActive(active bool) {
	g.active.Store(active)
}
