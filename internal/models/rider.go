package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rider is a roster entry: someone who boards a vehicle and whose guardian is notified.
type Rider struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	PasswordHash  string             `bson:"password_hash" json:"-"`
	DeviceID      string             `bson:"device_id,omitempty" json:"device_id,omitempty"`
	GuardianEmail string             `bson:"guardian_email" json:"guardian_email"`
	GuardianPhone string             `bson:"guardian_phone,omitempty" json:"guardian_phone,omitempty"`
	VehicleID     string             `bson:"vehicle_id" json:"vehicle_id"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// GuardianContact returns the phone number if one is on file, otherwise the email.
func (r *Rider) GuardianContact() string {
	if r.GuardianPhone != "" {
		return r.GuardianPhone
	}
	return r.GuardianEmail
}

// Principal returns the identity carried in the rider's session token.
func (r *Rider) Principal() Principal {
	return Principal{
		ID:        r.ID.Hex(),
		Username:  r.Name,
		Role:      RoleRider,
		VehicleID: r.VehicleID,
	}
}

// CreateRiderRequest is the admin payload for enrolling a rider.
type CreateRiderRequest struct {
	Name          string `json:"name"`
	Password      string `json:"password"`
	GuardianEmail string `json:"guardian_email"`
	GuardianPhone string `json:"guardian_phone"`
	VehicleID     string `json:"vehicle_id"`
}
