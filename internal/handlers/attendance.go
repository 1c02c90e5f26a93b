package handlers

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/attendance"
	"github.com/ukydev/boardcheck/internal/middleware"
	"github.com/ukydev/boardcheck/internal/models"
)

// AttendanceService is the verification engine as seen by the HTTP layer.
type AttendanceService interface {
	Verify(ctx context.Context, a attendance.Attempt) (*models.AttendanceRecord, error)
	MarkManual(ctx context.Context, vehicleID, identifier string) (*models.AttendanceRecord, error)
	Manifest(ctx context.Context, vehicleID string, day time.Time, loc *time.Location) ([]models.ManifestEntry, error)
	History(ctx context.Context, riderID string) ([]models.AttendanceRecord, error)
}

// MarkAttendanceRequest is the payload a rider's device sends after scanning
// the boarding token.
type MarkAttendanceRequest struct {
	Token    string   `json:"token"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	DeviceID string   `json:"device_id"`
}

// ManualAttendanceRequest identifies a rider by id or name.
type ManualAttendanceRequest struct {
	VehicleID string `json:"vehicle_id"`
	Rider     string `json:"rider"`
}

const manifestDateLayout = "2006-01-02"

// AttendanceHandler serves the attendance endpoints.
type AttendanceHandler struct {
	service  AttendanceService
	location *time.Location
	now      func() time.Time
	logger   *log.Entry
}

// NewAttendanceHandler creates an AttendanceHandler. Manifest days are
// computed in loc.
func NewAttendanceHandler(service AttendanceService, loc *time.Location, logger *log.Entry) *AttendanceHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceHandler{
		service:  service,
		location: loc,
		now:      time.Now,
		logger:   logger.WithField("component", "attendance_http"),
	}
}

// Mark runs a token-scan attempt for the authenticated rider.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var req MarkAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		http.Error(w, "lat and lng are required", http.StatusBadRequest)
		return
	}

	record, err := h.service.Verify(r.Context(), attendance.Attempt{
		RiderID:  claims.UserID,
		Token:    req.Token,
		Lat:      *req.Lat,
		Lng:      *req.Lng,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		if writeVerificationError(w, err) {
			return
		}
		h.logger.WithError(err).WithField("rider_id", claims.UserID).Error("Attendance verification failed")
		http.Error(w, "Failed to mark attendance", http.StatusInternalServerError)
		return
	}
	writeSuccess(w, http.StatusOK, "Attendance Marked Successfully", record)
}

// Manual records attendance on an operator's say-so.
func (h *AttendanceHandler) Manual(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var req ManualAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Rider == "" {
		http.Error(w, "rider is required", http.StatusBadRequest)
		return
	}
	vehicleID, ok := vehicleForStaff(w, claims, req.VehicleID)
	if !ok {
		return
	}

	record, err := h.service.MarkManual(r.Context(), vehicleID, req.Rider)
	if err != nil {
		if writeVerificationError(w, err) {
			return
		}
		h.logger.WithError(err).WithField("vehicle_id", vehicleID).Error("Manual attendance failed")
		http.Error(w, "Failed to mark attendance", http.StatusInternalServerError)
		return
	}
	writeSuccess(w, http.StatusOK, "Marked "+record.RiderName+" present", record)
}

// History lists the authenticated rider's own records.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	records, err := h.service.History(r.Context(), claims.UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load history")
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Manifest lists a vehicle's boardings for one day (default today).
func (h *AttendanceHandler) Manifest(w http.ResponseWriter, r *http.Request) {
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

	day := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(manifestDateLayout, raw, h.location)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	entries, err := h.service.Manifest(r.Context(), vehicleID, day, h.location)
	if err != nil {
		h.logger.WithError(err).WithField("vehicle_id", vehicleID).Error("Failed to load manifest")
		http.Error(w, "Failed to load manifest", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// vehicleForStaff resolves which vehicle a staff request acts on. Operators
// are pinned to their assigned vehicle; admins must name one.
func vehicleForStaff(w http.ResponseWriter, claims *models.Claims, requested string) (string, bool) {
	if claims.Role == models.RoleOperator {
		if claims.VehicleID == "" {
			http.Error(w, "No vehicle assigned", http.StatusForbidden)
			return "", false
		}
		if requested != "" && requested != claims.VehicleID {
			http.Error(w, "Not assigned to this vehicle", http.StatusForbidden)
			return "", false
		}
		return claims.VehicleID, true
	}
	if requested == "" {
		http.Error(w, "vehicle_id is required", http.StatusBadRequest)
		return "", false
	}
	return requested, true
}
