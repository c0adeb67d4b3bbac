package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcontrol/internal/audit"
	"github.com/JakeFAU/jobcontrol/internal/config"
	"github.com/JakeFAU/jobcontrol/internal/control"
	"github.com/JakeFAU/jobcontrol/internal/metrics"
)

// Error codes returned in the "error" field of 4xx bodies.
const (
	codeInvalidSpeed    = "invalid_speed"
	codeInterlockActive = "interlock_active"
	codeInvalidBody     = "invalid_body"
)

// timeoutBody is written by http.TimeoutHandler, which cannot encode.
const timeoutBody = `{"error":"timeout","message":"request timed out"}`

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Controller is the subset of control.Controller used by the HTTP handlers.
type Controller interface {
	Start(ctx context.Context, speed int) (control.Result, error)
	Stop(ctx context.Context) control.Result
	EmergencyStop() control.Status
	Status() control.Status
	Limits() control.Limits
	InterlockActive() bool
	RefreshInterlock() bool
	SetInterlock(active bool)
}

// HistoryReader returns recently recorded audit events, oldest first.
type HistoryReader interface {
	Recent(limit int) []audit.Event
}

// Server wires HTTP handlers to the controller.
type Server struct {
	router  chi.Router
	ctrl    Controller
	history HistoryReader
	health  []HealthCheck
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. history may be
// nil, in which case /api/history reports 404.
func NewServer(ctrl Controller, history HistoryReader, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ctrl:    ctrl,
		history: history,
		health:  DefaultHealthChecks(ctrl),
		cfg:     cfg,
		logger:  logger,
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/health", s.healthz)
	r.Get("/metrics", s.metrics)

	r.Route("/api", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/start", s.startJob)
			r.Post("/stop", s.stopJob)
			r.Post("/estop", s.emergencyStop)
		})
		r.Get("/status", s.getStatus)
		r.Get("/interlock", s.getInterlock)
		r.Put("/interlock", s.putInterlock)
		r.Get("/history", s.getHistory)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

type statusResponse struct {
	State control.RunState `json:"state"`
	Speed int              `json:"speed"`
}

type stopResponse struct {
	State control.RunState `json:"state"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type interlockPayload struct {
	Active *bool `json:"active"`
}

type interlockResponse struct {
	Active bool `json:"active"`
}

// startJob handles POST /api/jobs/start?speed=N. Missing or non-integer
// speeds are reported the same way as out-of-range ones.
func (s *Server) startJob(w http.ResponseWriter, r *http.Request) {
	limits := s.ctrl.Limits()
	speed, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("speed")))
	if err != nil {
		s.rejectSpeed(w, limits)
		return
	}

	res, err := s.ctrl.Start(r.Context(), speed)
	switch {
	case errors.Is(err, control.ErrInvalidSpeed):
		s.rejectSpeed(w, limits)
		return
	case errors.Is(err, control.ErrInterlockActive):
		metrics.ObserveStartRejection(codeInterlockActive)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: codeInterlockActive})
		return
	case err != nil:
		s.logger.Error("start job failed", zap.Int("speed", speed), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to start job")
		return
	}
	if res.Faulted() {
		s.logger.Warn("start job faulted", zap.Int("speed", speed), zap.Error(res.Fault))
	}
	writeJSON(w, http.StatusOK, statusResponse{State: res.Status.State, Speed: res.Status.Speed})
}

func (s *Server) rejectSpeed(w http.ResponseWriter, limits control.Limits) {
	metrics.ObserveStartRejection(codeInvalidSpeed)
	writeError(w, http.StatusBadRequest, codeInvalidSpeed,
		fmt.Sprintf("Speed must be between %d and %d", limits.Min, limits.Max))
}

func (s *Server) stopJob(w http.ResponseWriter, r *http.Request) {
	res := s.ctrl.Stop(r.Context())
	if res.Faulted() {
		s.logger.Warn("stop job faulted", zap.Error(res.Fault))
	}
	writeJSON(w, http.StatusOK, stopResponse{State: res.Status.State})
}

func (s *Server) emergencyStop(w http.ResponseWriter, _ *http.Request) {
	st := s.ctrl.EmergencyStop()
	writeJSON(w, http.StatusOK, statusResponse{State: st.State, Speed: st.Speed})
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.ctrl.Status()
	writeJSON(w, http.StatusOK, statusResponse{State: st.State, Speed: st.Speed})
}

func (s *Server) getInterlock(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, interlockResponse{Active: s.ctrl.RefreshInterlock()})
}

// putInterlock drives the stub interlock gate. Body: {"active": bool}.
func (s *Server) putInterlock(w http.ResponseWriter, r *http.Request) {
	var req interlockPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, `expected {"active": bool}`)
		return
	}
	s.ctrl.SetInterlock(*req.Active)
	s.logger.Info("interlock set via API", zap.Bool("active", *req.Active))
	writeJSON(w, http.StatusOK, interlockResponse{Active: *req.Active})
}

// getHistory handles GET /api/history?limit=N.
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history_disabled", "audit history is not enabled")
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(val, maxHistoryLimit)
	}
	events := s.history.Recent(limit)
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request id stored by the request id middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, timeoutBody)
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}
