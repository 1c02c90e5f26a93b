package handlers

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/attendance"
	"github.com/ukydev/boardcheck/internal/auth"
	"github.com/ukydev/boardcheck/internal/binding"
	"github.com/ukydev/boardcheck/internal/db"
	"github.com/ukydev/boardcheck/internal/models"
)

const newDeviceMessage = "New device detected. Please use your registered device."

var errLoginDeviceMismatch = errors.New("login from unregistered device")

// DeviceBinder checks a rider's device, binding it on first use.
type DeviceBinder interface {
	CheckAndBind(ctx context.Context, riderID, deviceID string) (binding.Outcome, string, error)
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *auth.Service
	users       db.UserCollection
	riders      db.RiderCollection
	devices     DeviceBinder
	logger      *log.Entry
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, users db.UserCollection, riders db.RiderCollection, devices DeviceBinder, logger *log.Entry) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
		riders:      riders,
		devices:     devices,
		logger:      logger.WithField("component", "auth"),
	}
}

// Login authenticates a rider or a staff member and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var loginReq models.LoginRequest
	if err := decodeJSON(r, &loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	var (
		principal models.Principal
		err       error
	)
	switch loginReq.UserType {
	case models.UserTypeRider, "":
		principal, err = h.loginRider(r, loginReq)
	case models.UserTypeStaff:
		principal, err = h.loginStaff(r, loginReq)
	default:
		http.Error(w, "Invalid user type", http.StatusBadRequest)
		return
	}
	switch {
	case err == nil:
	case errors.Is(err, errLoginDeviceMismatch):
		writeJSON(w, http.StatusForbidden, ErrorResponse{
			Status:  "error",
			Kind:    attendance.KindDeviceMismatch,
			Message: newDeviceMessage,
		})
		return
	case errors.Is(err, auth.ErrUserInactive):
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	case !errors.Is(err, auth.ErrInvalidCredentials):
		h.logger.WithError(err).Error("Login failed")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	default:
		h.logger.WithField("username", loginReq.Username).Info("Login failed")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(principal)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		Role:      principal.Role,
		Username:  principal.Username,
		VehicleID: principal.VehicleID,
	})
}

func (h *AuthHandler) loginRider(r *http.Request, req models.LoginRequest) (models.Principal, error) {
	rider, err := h.riders.FindRiderByName(r.Context(), req.Username)
	if err != nil {
		return models.Principal{}, auth.ErrInvalidCredentials
	}
	if !h.authService.CheckPassword(req.Password, rider.PasswordHash) {
		return models.Principal{}, auth.ErrInvalidCredentials
	}
	if req.DeviceID == "" {
		return rider.Principal(), nil
	}

	outcome, bound, err := h.devices.CheckAndBind(r.Context(), rider.ID.Hex(), req.DeviceID)
	if err != nil {
		return models.Principal{}, err
	}
	if outcome == binding.Rejected {
		h.logger.WithFields(log.Fields{
			"security_event":   "device_mismatch",
			"rider_id":         rider.ID.Hex(),
			"presented_device": req.DeviceID,
			"bound_device":     bound,
		}).Warn("Rider login from unregistered device")
		return models.Principal{}, errLoginDeviceMismatch
	}
	return rider.Principal(), nil
}

func (h *AuthHandler) loginStaff(r *http.Request, req models.LoginRequest) (models.Principal, error) {
	user, err := h.users.FindUserByUsername(r.Context(), req.Username)
	if err != nil {
		return models.Principal{}, auth.ErrInvalidCredentials
	}
	if !user.IsActive {
		return models.Principal{}, auth.ErrUserInactive
	}
	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		return models.Principal{}, auth.ErrInvalidCredentials
	}

	if err := h.users.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		h.logger.WithError(err).Error("Failed to update last login")
	}
	return user.Principal(), nil
}
