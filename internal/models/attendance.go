package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Method is how an attendance record was captured.
type Method string

const (
	MethodTokenScan Method = "token-scan"
	MethodManual    Method = "manual"
)

// VerificationStatus is the trust level of an attendance record.
type VerificationStatus string

const (
	StatusVerified       VerificationStatus = "verified"
	StatusVerifiedManual VerificationStatus = "verified-manual"
)

// AttendanceRecord is written once per successful boarding and never changed.
type AttendanceRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RiderID   string             `bson:"rider_id" json:"rider_id"`
	RiderName string             `bson:"rider_name" json:"rider_name"`
	MarkedAt  time.Time          `bson:"marked_at" json:"marked_at"`
	Method    Method             `bson:"method" json:"method"`
	VehicleID string             `bson:"vehicle_id" json:"vehicle_id"`
	Location  *Location          `bson:"location,omitempty" json:"location,omitempty"`
	DeviceID  string             `bson:"device_id,omitempty" json:"device_id,omitempty"`
	Status    VerificationStatus `bson:"status" json:"status"`
}

// ManifestEntry is an attendance record collapsed for a vehicle's daily manifest.
type ManifestEntry struct {
	RiderName string             `json:"rider_name"`
	Time      string             `json:"time"`
	Status    VerificationStatus `json:"status"`
	Method    Method             `json:"method"`
}

// ManifestEntry collapses the record, formatting the time as HH:MM:SS in loc.
func (a AttendanceRecord) ManifestEntry(loc *time.Location) ManifestEntry {
	return ManifestEntry{
		RiderName: a.RiderName,
		Time:      a.MarkedAt.In(loc).Format("15:04:05"),
		Status:    a.Status,
		Method:    a.Method,
	}
}

// AuditEntry records an administrative, trust-relevant action.
type AuditEntry struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action           string             `bson:"action" json:"action"`
	Actor            string             `bson:"actor" json:"actor"`
	RiderID          string             `bson:"rider_id" json:"rider_id"`
	PreviousDeviceID string             `bson:"previous_device_id,omitempty" json:"previous_device_id,omitempty"`
	Reason           string             `bson:"reason" json:"reason"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}
