package health

import (
	"net/http"

	"github.com/searchsvc/gateway/internal/util"
)

// liveBody is the fixed liveness response.
var liveBody = map[string]string{"status": "ok"}

// HealthHandler serves the aggregate check report. Healthy and
// degraded states answer 200, unhealthy 503, so orchestrators only
// restart on critical failures.
func (c *Checker) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())

		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		_ = util.WriteJSON(w, status, report)
	})
}

// ReadyHandler serves the readiness probe: 503 until startup completes
// and while any critical check fails.
func (c *Checker) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.Started() {
			_ = util.WriteJSON(w, http.StatusServiceUnavailable,
				Report{Status: StatusUnhealthy})
			return
		}

		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		_ = util.WriteJSON(w, status, report)
	})
}

// LiveHandler serves the liveness probe. It always answers 200; a
// process that can serve it is alive.
func (c *Checker) LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = util.WriteJSON(w, http.StatusOK, liveBody)
	})
}
