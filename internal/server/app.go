// Package server builds the application object graph and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcontrol/internal/api"
	"github.com/JakeFAU/jobcontrol/internal/audit"
	"github.com/JakeFAU/jobcontrol/internal/audit/sinks"
	"github.com/JakeFAU/jobcontrol/internal/clock/system"
	"github.com/JakeFAU/jobcontrol/internal/config"
	"github.com/JakeFAU/jobcontrol/internal/console"
	"github.com/JakeFAU/jobcontrol/internal/control"
	"github.com/JakeFAU/jobcontrol/internal/driver/simulated"
	"github.com/JakeFAU/jobcontrol/internal/id/uuid"
	"github.com/JakeFAU/jobcontrol/internal/logging"
	"github.com/JakeFAU/jobcontrol/internal/metrics"
	"github.com/JakeFAU/jobcontrol/internal/storage/memory"
	"github.com/JakeFAU/jobcontrol/internal/viewmodel"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	controller *control.Controller
	driver     *simulated.Driver
	gate       *memory.InterlockGate
	apiServer  *api.Server
	auditHub   *audit.Hub
	history    *sinks.HistorySink
	viewModel  *viewmodel.ViewModel
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	registerer prometheus.Registerer
	logOutputs []string
	logger     *zap.Logger
}

// WithRegisterer registers audit collectors against reg instead of the
// default Prometheus registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *buildOptions) { o.registerer = reg }
}

// WithLogOutputs sends logs to the given zap sinks, e.g. a file while the
// console owns the terminal.
func WithLogOutputs(outputs ...string) Option {
	return func(o *buildOptions) { o.logOutputs = outputs }
}

// WithLogger uses logger instead of building one from config.
func WithLogger(logger *zap.Logger) Option {
	return func(o *buildOptions) { o.logger = logger }
}

// Build creates the application's dependencies.
func Build(_ context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := buildOptions{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.NewWithOutput(cfg.Logging.Development, o.logOutputs)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		zap.ReplaceGlobals(logger)
	}

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.Bool("audit_enabled", cfg.Audit.Enabled),
	)
	metrics.Init()

	emitter, err := app.setupAudit(o.registerer)
	if err != nil {
		return nil, err
	}

	clock := system.New()
	app.gate = memory.NewInterlockGate()
	app.driver = simulated.New(simulated.Config{
		FaultOnStart: cfg.Driver.FaultOnStart,
		FaultOnStop:  cfg.Driver.FaultOnStop,
	}, logger.Named("driver"))
	app.controller = control.NewController(
		memory.NewJobState(),
		app.gate,
		app.driver,
		clock,
		uuid.New(),
		emitter,
		logger.Named("control"),
	)

	var history api.HistoryReader
	if app.history != nil {
		history = app.history
	}
	app.apiServer = api.NewServer(app.controller, history, *cfg, logger.Named("api"))
	app.viewModel = viewmodel.New(
		app.controller,
		clock,
		viewmodel.SettingsFromConfig(*cfg),
		logger.Named("viewmodel"),
	)
	return app, nil
}

// setupAudit returns nil when auditing is disabled.
func (a *App) setupAudit(reg prometheus.Registerer) (audit.Emitter, error) {
	if !a.cfg.Audit.Enabled {
		a.logger.Info("audit trail disabled")
		return nil, nil
	}
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return nil, fmt.Errorf("audit metrics init failed: %w", err)
	}
	sinkList := []audit.Sink{promSink}
	if a.cfg.Audit.LogEnabled {
		sinkList = append(sinkList, sinks.NewLogSink(a.logger.Named("audit_log")))
		a.logger.Debug("added audit log sink")
	}
	if a.cfg.Audit.HistorySize > 0 {
		a.history = sinks.NewHistorySink(a.cfg.Audit.HistorySize)
		sinkList = append(sinkList, a.history)
		a.logger.Debug("added audit history sink", zap.Int("capacity", a.cfg.Audit.HistorySize))
	}

	hubCfg := audit.Config{
		BufferSize:     a.cfg.Audit.BufferSize,
		MaxBatchEvents: a.cfg.Audit.Batch.MaxEvents,
		MaxBatchWait:   time.Duration(a.cfg.Audit.Batch.MaxWaitMs) * time.Millisecond,
		SinkTimeout:    time.Duration(a.cfg.Audit.SinkTimeoutMs) * time.Millisecond,
		Logger:         a.logger.Named("audit_hub"),
	}
	a.auditHub = audit.NewHub(hubCfg, sinkList...)
	a.logger.Info("audit hub initialized",
		zap.Int("sinks", len(sinkList)),
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch_events", hubCfg.MaxBatchEvents),
		zap.Duration("max_batch_wait", hubCfg.MaxBatchWait),
	)
	return a.auditHub, nil
}

// Handler exposes the HTTP router.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run serves HTTP and blocks until the context is canceled or a signal
// arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := a.startHTTP(stop)
	<-ctx.Done()
	a.logger.Info("shutdown initiated")
	return a.shutdown(srv)
}

// RunConsole serves HTTP in the background and runs the terminal UI in the
// foreground. Both share one controller.
func (a *App) RunConsole(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := a.startHTTP(stop)
	uiErr := console.Run(ctx, a.viewModel, a.cfg.ConsoleRefresh())
	stop()
	a.logger.Info("console exited", zap.Error(uiErr))
	return errors.Join(uiErr, a.shutdown(srv))
}

func (a *App) startHTTP(onFailure func()) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			onFailure()
		}
	}()
	return srv
}

func (a *App) shutdown(srv *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return a.Close(shutdownCtx)
}

// Close flushes the audit trail and syncs the logger.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.auditHub != nil {
		if err := a.auditHub.Close(ctx); err != nil {
			a.logger.Warn("audit hub close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.logger.Info("shutdown complete")
	// Sync fails on stderr for some platforms; it is not worth surfacing.
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
