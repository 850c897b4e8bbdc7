package http

import (
	"net/http"
	"time"

	"github.com/lawdesk/lawdesk/internal/api/store"
	"github.com/lawdesk/lawdesk/pkg/httpx"
)

// ReadyzHandler is the readiness probe. It turns 503 when the database is
// unreachable so the load balancer stops routing here.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &healthChecks{Database: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, healthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
