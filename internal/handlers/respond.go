package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ukydev/boardcheck/internal/attendance"
)

// ErrorResponse is the body returned for a refused attendance attempt.
type ErrorResponse struct {
	Status         string          `json:"status"`
	Kind           attendance.Kind `json:"kind,omitempty"`
	Message        string          `json:"message"`
	DistanceMeters *int            `json:"distance_m,omitempty"`
}

// StatusResponse is the body returned for a successful action.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, StatusResponse{Status: "success", Message: message, Data: data})
}

// verificationStatus maps a refusal kind to its HTTP status.
func verificationStatus(kind attendance.Kind) int {
	switch kind {
	case attendance.KindInvalidToken, attendance.KindMissingDeviceID:
		return http.StatusBadRequest
	case attendance.KindRiderNotFound:
		return http.StatusNotFound
	case attendance.KindVehicleNotActive, attendance.KindStalePosition:
		return http.StatusConflict
	case attendance.KindGeofenceViolation:
		return http.StatusUnprocessableEntity
	case attendance.KindDeviceMismatch:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// writeVerificationError writes err as a structured refusal. It reports false
// when err is not a refusal, leaving the response untouched.
func writeVerificationError(w http.ResponseWriter, err error) bool {
	verr, ok := attendance.AsVerificationError(err)
	if !ok {
		return false
	}
	resp := ErrorResponse{Status: "error", Kind: verr.Kind, Message: verr.Message}
	if verr.Kind == attendance.KindGeofenceViolation {
		d := verr.DistanceMeters
		resp.DistanceMeters = &d
	}
	writeJSON(w, verificationStatus(verr.Kind), resp)
	return true
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
