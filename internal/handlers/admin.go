package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/auth"
	"github.com/ukydev/boardcheck/internal/db"
	"github.com/ukydev/boardcheck/internal/middleware"
	"github.com/ukydev/boardcheck/internal/models"
)

// DeviceResetter clears a rider's device binding with an audit entry.
type DeviceResetter interface {
	Reset(ctx context.Context, riderID, reason, actor string) (models.AuditEntry, error)
}

// ResetDeviceRequest is the body of a device reset.
type ResetDeviceRequest struct {
	Reason string `json:"reason"`
}

const defaultAuditLimit = 50

// AdminHandler serves roster administration.
type AdminHandler struct {
	authService *auth.Service
	riders      db.RiderCollection
	resetter    DeviceResetter
	audit       db.AuditLog
	logger      *log.Entry
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(authService *auth.Service, riders db.RiderCollection, resetter DeviceResetter, audit db.AuditLog, logger *log.Entry) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		riders:      riders,
		resetter:    resetter,
		audit:       audit,
		logger:      logger.WithField("component", "admin_http"),
	}
}

// CreateRider enrolls a rider with no bound device.
func (h *AdminHandler) CreateRider(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.CreateRiderRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.authService.ValidateUsername(req.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.GuardianEmail == "" && req.GuardianPhone == "" {
		http.Error(w, "guardian_email or guardian_phone is required", http.StatusBadRequest)
		return
	}
	if req.GuardianEmail != "" {
		if err := h.authService.ValidateEmail(req.GuardianEmail); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	rider, err := h.riders.InsertRider(r.Context(), models.Rider{
		Name:          req.Name,
		PasswordHash:  passwordHash,
		GuardianEmail: req.GuardianEmail,
		GuardianPhone: req.GuardianPhone,
		VehicleID:     req.VehicleID,
	})
	if errors.Is(err, db.ErrDuplicate) {
		http.Error(w, "Rider already exists", http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to create rider")
		http.Error(w, "Failed to create rider", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, rider)
}

// ResetDevice clears the binding of the rider named in the path.
func (h *AdminHandler) ResetDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	riderID := r.PathValue("id")
	if riderID == "" {
		http.Error(w, "rider id is required", http.StatusBadRequest)
		return
	}

	// the body is optional
	var req ResetDeviceRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	entry, err := h.resetter.Reset(r.Context(), riderID, req.Reason, claims.Username)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Status: "error", Message: "Student not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("rider_id", riderID).Error("Failed to reset device")
		http.Error(w, "Failed to reset device", http.StatusInternalServerError)
		return
	}
	writeSuccess(w, http.StatusOK, "Device reset", entry)
}

// Audit lists the most recent audit entries. ?limit= overrides the default.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := int64(defaultAuditLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.audit.FindAudit(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load audit log")
		http.Error(w, "Failed to load audit log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
