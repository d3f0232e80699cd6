package rpc

import (
	"net/http"
	"time"
)

// HealthStatus is the response of GET /health.
type HealthStatus struct {
	Status    string            `json:"status"` // healthy, degraded or unhealthy
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	unhealthy := 0

	for _, a := range s.adapters.All() {
		key := "chain_" + string(a.Network())
		if a.Healthy(r.Context()) {
			checks[key] = "ok"
		} else {
			checks[key] = "unreachable"
			unhealthy++
		}
	}

	storeErr, limiterErr := s.service.Ping(r.Context())
	checks["store"] = "ok"
	if storeErr != nil {
		checks["store"] = "unreachable"
		unhealthy++
	}
	checks["rate_limiter"] = "ok"
	if limiterErr != nil {
		checks["rate_limiter"] = "unreachable"
		unhealthy++
	}

	// The store is load-bearing for every operation; anything else failing
	// only degrades service.
	status := "healthy"
	code := http.StatusOK
	switch {
	case storeErr != nil || unhealthy >= len(checks):
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	case unhealthy > 0:
		status = "degraded"
	}

	s.writeJSON(w, code, &HealthStatus{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleMetricsReport(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.rec.Report())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.rec.Prometheus()))
}
