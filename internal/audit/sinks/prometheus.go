package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/jobcontrol/internal/audit"
)

var knownStates = []string{"Idle", "Running", "Error"}

// PrometheusSink exports controller decisions as Prometheus metrics: a counter
// per action, a one-hot gauge of the current run state, the last applied
// speed, and the interlock flag.
type PrometheusSink struct {
	actions   *prometheus.CounterVec
	state     *prometheus.GaugeVec
	speed     prometheus.Gauge
	interlock prometheus.Gauge
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobcontrol_actions_total",
			Help: "Controller decisions partitioned by action.",
		}, []string{"action"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobcontrol_job_state",
			Help: "Current job run state (1 for the active state, 0 otherwise).",
		}, []string{"state"}),
		speed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobcontrol_job_speed",
			Help: "Speed reported after the last controller decision.",
		}),
		interlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobcontrol_interlock_active",
			Help: "1 when the interlock was last observed active.",
		}),
	}
	for _, collector := range []prometheus.Collector{s.actions, s.state, s.speed, s.interlock} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register audit collector: %w", err)
		}
	}
	s.setState("Idle")
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []audit.Event) error {
	for _, evt := range batch {
		s.actions.WithLabelValues(string(evt.Action)).Inc()
		s.interlock.Set(boolToFloat(evt.Interlock))
		if evt.Action == audit.ActionInterlock {
			continue
		}
		s.setState(evt.To)
		switch evt.Action {
		case audit.ActionStart, audit.ActionStop, audit.ActionEmergencyStop:
			s.speed.Set(float64(evt.Speed))
		}
	}
	return nil
}

func (s *PrometheusSink) setState(current string) {
	for _, st := range knownStates {
		if st == current {
			s.state.WithLabelValues(st).Set(1)
		} else {
			s.state.WithLabelValues(st).Set(0)
		}
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
