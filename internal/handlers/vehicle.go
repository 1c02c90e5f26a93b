package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/attendance"
	"github.com/ukydev/boardcheck/internal/location"
	"github.com/ukydev/boardcheck/internal/middleware"
	"github.com/ukydev/boardcheck/internal/models"
	"github.com/ukydev/boardcheck/internal/reporter"
)

// PositionReporter accepts vehicle heartbeats.
type PositionReporter interface {
	Report(ctx context.Context, vehicleID string, lat, lng float64) (models.VehiclePosition, error)
}

// TokenResponse carries the boarding token a vehicle displays.
type TokenResponse struct {
	VehicleID string    `json:"vehicle_id"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
}

// VehicleHandler serves the vehicle-side endpoints.
type VehicleHandler struct {
	reporter  PositionReporter
	positions location.Store
	now       func() time.Time
	logger    *log.Entry
}

// NewVehicleHandler creates a VehicleHandler.
func NewVehicleHandler(reporter PositionReporter, positions location.Store, logger *log.Entry) *VehicleHandler {
	return &VehicleHandler{
		reporter:  reporter,
		positions: positions,
		now:       time.Now,
		logger:    logger.WithField("component", "vehicle_http"),
	}
}

// Heartbeat stores the operator's current vehicle position.
func (h *VehicleHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var report models.PositionReport
	if err := decodeJSON(r, &report); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	vehicleID, ok := vehicleForStaff(w, claims, report.VehicleID)
	if !ok {
		return
	}
	report.VehicleID = vehicleID
	if !report.Complete() {
		http.Error(w, "lat and lng are required", http.StatusBadRequest)
		return
	}

	pos, err := h.reporter.Report(r.Context(), report.VehicleID, *report.Lat, *report.Lng)
	if errors.Is(err, reporter.ErrMissingVehicleID) || errors.Is(err, reporter.ErrInvalidLocation) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("vehicle_id", vehicleID).Error("Failed to store position")
		http.Error(w, "Failed to store position", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// Token returns the boarding token for the operator's vehicle as of now.
func (h *VehicleHandler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	vehicleID, ok := vehicleForStaff(w, claims, r.URL.Query().Get("vehicle_id"))
	if !ok {
		return
	}

	now := h.now()
	writeJSON(w, http.StatusOK, TokenResponse{
		VehicleID: vehicleID,
		Token:     attendance.IssueToken(vehicleID, now),
		IssuedAt:  now,
	})
}

// Positions lists every vehicle's last reported position.
func (h *VehicleHandler) Positions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	positions, err := h.positions.All(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list positions")
		http.Error(w, "Failed to list positions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}
