package attendance

import (
	"errors"
	"fmt"
)

// Kind classifies why a verification attempt was refused.
type Kind string

const (
	KindInvalidToken      Kind = "invalid_token"
	KindVehicleNotActive  Kind = "vehicle_not_active"
	KindStalePosition     Kind = "stale_position"
	KindGeofenceViolation Kind = "geofence_violation"
	KindMissingDeviceID   Kind = "missing_device_id"
	KindDeviceMismatch    Kind = "device_mismatch"
	KindRiderNotFound     Kind = "rider_not_found"
)

// VerificationError is a terminal refusal of one attendance attempt. Message
// is safe to show to the rider.
type VerificationError struct {
	Kind    Kind
	Message string
	// DistanceMeters is set for geofence violations.
	DistanceMeters int
}

func (e *VerificationError) Error() string {
	return e.Message
}

// Is matches any VerificationError of the same kind, so the sentinels below
// work with errors.Is.
func (e *VerificationError) Is(target error) bool {
	t, ok := target.(*VerificationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidToken      = &VerificationError{Kind: KindInvalidToken, Message: "Invalid QR Code"}
	ErrVehicleNotActive  = &VerificationError{Kind: KindVehicleNotActive, Message: "Bus not active/Syncing..."}
	ErrStalePosition     = &VerificationError{Kind: KindStalePosition, Message: "Bus location is out of date. Please scan again shortly."}
	ErrGeofenceViolation = &VerificationError{Kind: KindGeofenceViolation, Message: "Geofence Failed! Too far from bus."}
	ErrMissingDeviceID   = &VerificationError{Kind: KindMissingDeviceID, Message: "Missing Device Identifier"}
	ErrDeviceMismatch    = &VerificationError{Kind: KindDeviceMismatch, Message: "Security Breach: Device Mismatch. Please contact Admin."}
	ErrRiderNotFound     = &VerificationError{Kind: KindRiderNotFound, Message: "Student not found"}
)

func geofenceError(distance int) *VerificationError {
	return &VerificationError{
		Kind:           KindGeofenceViolation,
		Message:        fmt.Sprintf("Geofence Failed! Too far from bus (%dm).", distance),
		DistanceMeters: distance,
	}
}

// IsSecurityViolation reports whether err should raise an operational alert
// rather than being treated as a user-correctable failure.
func IsSecurityViolation(err error) bool {
	return errors.Is(err, ErrDeviceMismatch)
}

// AsVerificationError unwraps err to a VerificationError if it is one.
func AsVerificationError(err error) (*VerificationError, bool) {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
