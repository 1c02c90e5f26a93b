package models

import (
	"time"
)

// VehiclePosition is the most recent location reported by a vehicle.
type VehiclePosition struct {
	VehicleID  string    `bson:"vehicle_id" json:"vehicle_id"`
	Location   Location  `bson:"location" json:"location"`
	ReportedAt time.Time `bson:"reported_at" json:"reported_at"`
}

// PositionReport is the payload a vehicle-side agent sends on every heartbeat.
type PositionReport struct {
	VehicleID string   `json:"vehicle_id"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
}

// Complete reports whether every field of the report is present.
func (p PositionReport) Complete() bool {
	return p.VehicleID != "" && p.Lat != nil && p.Lng != nil
}
