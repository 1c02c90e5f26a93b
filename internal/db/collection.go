package db

import (
	"context"
	"time"

	"github.com/ukydev/boardcheck/internal/models"
)

// RiderCollection defines the roster operations.
type RiderCollection interface {
	InsertRider(ctx context.Context, rider models.Rider) (*models.Rider, error)
	FindRiderByID(ctx context.Context, id string) (*models.Rider, error)
	FindRiderByName(ctx context.Context, name string) (*models.Rider, error)
	// FindRiderByIdentifier matches either the rider id or the rider name.
	FindRiderByIdentifier(ctx context.Context, identifier string) (*models.Rider, error)
	DeviceCollection
}

// DeviceCollection holds the bound-device field of each rider.
type DeviceCollection interface {
	// BindDeviceIfUnset sets the rider's device to deviceID only when no device
	// is bound, as one atomic step. It returns the device bound after the call
	// and whether this call performed the bind. A device bound to a different
	// rider fails with ErrDeviceInUse and changes nothing.
	BindDeviceIfUnset(ctx context.Context, riderID, deviceID string) (string, bool, error)
	// ClearDevice unbinds the rider's device and returns the previous value.
	ClearDevice(ctx context.Context, riderID string) (string, error)
}

// UserCollection defines the staff account operations
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// AttendanceCollection stores attendance records. Records are only ever inserted.
type AttendanceCollection interface {
	InsertAttendance(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error)
	// FindAttendanceByVehicle returns records for vehicleID marked in [from, to), oldest first.
	FindAttendanceByVehicle(ctx context.Context, vehicleID string, from, to time.Time) ([]models.AttendanceRecord, error)
	// FindAttendanceByRider returns up to limit records for riderID, newest first.
	FindAttendanceByRider(ctx context.Context, riderID string, limit int64) ([]models.AttendanceRecord, error)
}

// AuditLog is the append-only audit trail.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
	// FindAudit returns up to limit entries, newest first.
	FindAudit(ctx context.Context, limit int64) ([]models.AuditEntry, error)
}
