// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/aanand-mishra/clients-api/internal/utils/response"
)

// Pinger is the slice of storage.Storage the readiness probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the probe response body.
type Status struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Version  string `json:"version"`
	Database string `json:"database,omitempty"`
}

// Livez handles GET /livez. It answers 200 for as long as the process
// serves requests.
func Livez(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, Status{
			Status:  "ok",
			Uptime:  time.Since(startTime).Truncate(time.Second).String(),
			Version: version,
		})
	}
}

// Readyz handles GET /readyz. It pings storage and answers 503 with status
// "degraded" when the database is unreachable.
func Readyz(startTime time.Time, version string, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := Status{
			Status:   "ok",
			Uptime:   time.Since(startTime).Truncate(time.Second).String(),
			Version:  version,
			Database: "ok",
		}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Database = "error: " + err.Error()
			code = http.StatusServiceUnavailable
		}

		response.WriteJSON(w, code, status)
	}
}
