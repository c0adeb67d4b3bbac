package sinks

import (
	"context"
	"sync"

	"github.com/eapache/queue"

	"github.com/JakeFAU/jobcontrol/internal/audit"
)

// HistorySink keeps the most recent audit events in memory, oldest first.
type HistorySink struct {
	mu       sync.RWMutex
	capacity int
	events   *queue.Queue
}

// NewHistorySink retains at most capacity events; capacity < 1 keeps one.
func NewHistorySink(capacity int) *HistorySink {
	if capacity < 1 {
		capacity = 1
	}
	return &HistorySink{capacity: capacity, events: queue.New()}
}

// Consume appends the batch, evicting the oldest events beyond capacity.
func (s *HistorySink) Consume(_ context.Context, batch []audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.events.Add(evt)
		for s.events.Length() > s.capacity {
			s.events.Remove()
		}
	}
	return nil
}

// Recent returns up to limit of the newest events, oldest first. limit <= 0
// returns everything retained.
func (s *HistorySink) Recent(limit int) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.events.Length()
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]audit.Event, 0, n)
	for i := s.events.Length() - n; i < s.events.Length(); i++ {
		out = append(out, s.events.Get(i).(audit.Event))
	}
	return out
}

// Close implements the Sink interface; it performs no action.
func (s *HistorySink) Close(context.Context) error {
	return nil
}
