package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/jobcontrol/internal/audit"
)

// TestPrometheusSinkRecordsMetrics ensures counters and gauges follow the event stream.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(sink.state.WithLabelValues("Idle")))

	batch := []audit.Event{
		event(audit.ActionStart, "Idle", "Running", 120),
		event(audit.ActionStartFault, "Running", "Error", 130),
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.actions.WithLabelValues("start")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.actions.WithLabelValues("start_fault")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.state.WithLabelValues("Error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.state.WithLabelValues("Running")))
	require.Equal(t, 120.0, testutil.ToFloat64(sink.speed))

	interlock := event(audit.ActionInterlock, "", "", 0)
	interlock.Interlock = true
	require.NoError(t, sink.Consume(context.Background(), []audit.Event{interlock}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.interlock))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.state.WithLabelValues("Error")), "interlock events keep the state")
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.ErrorContains(t, err, "register audit collector")
}

func TestHistorySinkEvictsOldest(t *testing.T) {
	t.Parallel()

	sink := NewHistorySink(3)
	for i := 1; i <= 5; i++ {
		require.NoError(t, sink.Consume(context.Background(), []audit.Event{
			event(audit.ActionStart, "Idle", "Running", i),
		}))
	}

	all := sink.Recent(0)
	require.Len(t, all, 3)
	require.Equal(t, []int{3, 4, 5}, speeds(all))

	latest := sink.Recent(2)
	require.Equal(t, []int{4, 5}, speeds(latest))
	require.NoError(t, sink.Close(context.Background()))
}

func TestHistorySinkMinimumCapacity(t *testing.T) {
	t.Parallel()

	sink := NewHistorySink(0)
	require.NoError(t, sink.Consume(context.Background(), []audit.Event{
		event(audit.ActionStart, "Idle", "Running", 1),
		event(audit.ActionStop, "Running", "Idle", 0),
	}))
	require.Len(t, sink.Recent(10), 1)
	require.Equal(t, audit.ActionStop, sink.Recent(10)[0].Action)
}

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))

	fault := event(audit.ActionStopFault, "Running", "Error", 100)
	fault.Note = "drive fault"
	require.NoError(t, sink.Consume(context.Background(), []audit.Event{
		event(audit.ActionStart, "Idle", "Running", 100),
		fault,
	}))

	entries := logs.FilterMessage("audit event").All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "drive fault", entries[1].ContextMap()["note"])
	require.NoError(t, sink.Close(context.Background()))
}

func event(action audit.Action, from, to string, speed int) audit.Event {
	return audit.Event{
		ID:     uuid.New(),
		TS:     time.Now().UTC(),
		Action: action,
		From:   from,
		To:     to,
		Speed:  speed,
	}
}

func speeds(events []audit.Event) []int {
	out := make([]int, 0, len(events))
	for _, evt := range events {
		out = append(out, evt.Speed)
	}
	return out
}
