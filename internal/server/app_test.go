package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcontrol/internal/config"
	"github.com/JakeFAU/jobcontrol/internal/control"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeoutSeconds: 5},
		Control: config.ControlConfig{DefaultSpeed: 100, MinSpeed: 1, MaxSpeed: 1000},
		Audit: config.AuditConfig{
			Enabled:     true,
			HistorySize: 10,
			Batch:       config.AuditBatchConfig{MaxEvents: 1, MaxWaitMs: 10},
		},
		Console: config.ConsoleConfig{RefreshIntervalMs: 1000},
	}
}

func TestBuildWiresAuditTrail(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	app, err := Build(context.Background(), testConfig(), WithRegisterer(reg), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/start?speed=120", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
		var body struct {
			Events []json.RawMessage `json:"events"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			return false
		}
		return len(body.Events) == 1
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, 1, testutil.CollectAndCount(reg, "jobcontrol_actions_total"))
	require.Equal(t, control.StateRunning, app.viewModel.Status())
}

func TestBuildWithoutAudit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Audit.Enabled = false
	app, err := Build(context.Background(), cfg, WithRegisterer(prometheus.NewRegistry()), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.Nil(t, app.auditHub)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, app.Close(context.Background()))
}

func TestBuildDriverFaults(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Driver.FaultOnStart = true
	app, err := Build(context.Background(), cfg, WithRegisterer(prometheus.NewRegistry()), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/start?speed=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"state":"Error","speed":0}`, rec.Body.String())
}

func TestBuildDuplicateRegistererFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := Build(context.Background(), testConfig(), WithRegisterer(reg), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close(context.Background()) })

	_, err = Build(context.Background(), testConfig(), WithRegisterer(reg), WithLogger(zap.NewNop()))
	require.ErrorContains(t, err, "audit metrics init failed")
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.Port = 0
	app, err := Build(context.Background(), cfg, WithRegisterer(prometheus.NewRegistry()), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
