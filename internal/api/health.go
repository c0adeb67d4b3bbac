package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Health statuses reported by /health.
const (
	Healthy   = "Healthy"
	Unhealthy = "Unhealthy"
)

// HealthCheck is a named liveness probe. Check returns an error, or panics,
// when the component cannot be reached.
type HealthCheck struct {
	Name  string
	Check func() error
}

// DefaultHealthChecks returns the job_service and interlock_service probes,
// which succeed as long as the controller answers. Neither changes state.
func DefaultHealthChecks(ctrl Controller) []HealthCheck {
	return []HealthCheck{
		{Name: "job_service", Check: func() error {
			_ = ctrl.Status()
			return nil
		}},
		{Name: "interlock_service", Check: func() error {
			_ = ctrl.InterlockActive()
			return nil
		}},
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: Healthy, Checks: make(map[string]string, len(s.health))}
	for _, hc := range s.health {
		if err := runCheck(hc); err != nil {
			s.logger.Warn("health check failed", zap.String("check", hc.Name), zap.Error(err))
			resp.Checks[hc.Name] = Unhealthy
			resp.Status = Unhealthy
			continue
		}
		resp.Checks[hc.Name] = Healthy
	}
	code := http.StatusOK
	if resp.Status != Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func runCheck(hc HealthCheck) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panicked: %v", hc.Name, rec)
		}
	}()
	return hc.Check()
}
