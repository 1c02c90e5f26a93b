package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/handlers"
	"github.com/ukydev/boardcheck/internal/middleware"
	"github.com/ukydev/boardcheck/internal/models"
)

const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthCheck.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Auth       *middleware.AuthMiddleware
	Login      *handlers.AuthHandler
	Attendance *handlers.AttendanceHandler
	Vehicles   *handlers.VehicleHandler
	Admin      *handlers.AdminHandler
	Health     []HealthCheck
}

// NewRouter wires the HTTP routes exposed by the API.
func NewRouter(logger *log.Entry, deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	perm := func(action string, h http.HandlerFunc) http.Handler {
		return deps.Auth.RequirePermission(action)(h)
	}

	limiter := middleware.NewRateLimiter(loginRateLimit, loginRateWindow)
	mux.Handle("/api/auth/login", limiter.Limit(http.HandlerFunc(deps.Login.Login)))
	mux.HandleFunc("/health", healthHandler(logger, deps.Health))

	mux.Handle("/api/attendance/mark", perm(models.ActionMarkAttendance, deps.Attendance.Mark))
	mux.Handle("/api/attendance/history", perm(models.ActionViewHistory, deps.Attendance.History))
	mux.Handle("/api/attendance/manual", perm(models.ActionManualAttendance, deps.Attendance.Manual))

	mux.Handle("/api/vehicles/heartbeat", perm(models.ActionReportPosition, deps.Vehicles.Heartbeat))
	mux.Handle("/api/vehicles/token", perm(models.ActionIssueToken, deps.Vehicles.Token))
	mux.Handle("/api/vehicles/manifest", perm(models.ActionViewManifest, deps.Attendance.Manifest))
	mux.Handle("/api/vehicles/positions", perm(models.ActionViewPositions, deps.Vehicles.Positions))

	mux.Handle("/api/admin/riders", perm(models.ActionManageRiders, deps.Admin.CreateRider))
	mux.Handle("/api/admin/riders/{id}/reset-device", perm(models.ActionResetDevice, deps.Admin.ResetDevice))
	mux.Handle("/api/admin/audit", perm(models.ActionViewAudit, deps.Admin.Audit))

	return middleware.RequestLogger(logger)(deps.Auth.Authenticate(mux))
}

func healthHandler(logger *log.Entry, checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{"status": "ok"}
		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				logger.WithError(err).Error("Health check failed")
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}
}
