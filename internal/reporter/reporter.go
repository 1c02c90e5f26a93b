// Package reporter accepts position reports from vehicle-side agents and
// writes them into the live location store.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/location"
	"github.com/ukydev/boardcheck/internal/models"
)

var (
	// ErrMissingVehicleID is returned for a report without a vehicle id.
	ErrMissingVehicleID = errors.New("vehicle id is required")
	// ErrInvalidLocation is returned for coordinates that are not finite or
	// fall outside the WGS84 range.
	ErrInvalidLocation = errors.New("coordinates out of range")
)

// Reporter stamps incoming reports with the arrival time and stores them.
type Reporter struct {
	store  location.Store
	now    func() time.Time
	logger *log.Entry
}

// New creates a Reporter writing into store.
func New(store location.Store, logger *log.Entry) *Reporter {
	return &Reporter{
		store:  store,
		now:    time.Now,
		logger: logger.WithField("component", "reporter"),
	}
}

// Report records the vehicle's position as of now. Reports are not
// deduplicated or rate limited; the last one to arrive wins.
func (r *Reporter) Report(ctx context.Context, vehicleID string, lat, lng float64) (models.VehiclePosition, error) {
	if vehicleID == "" {
		return models.VehiclePosition{}, ErrMissingVehicleID
	}
	loc := models.Location{Lat: lat, Lng: lng}
	if !loc.Valid() {
		return models.VehiclePosition{}, ErrInvalidLocation
	}

	pos := models.VehiclePosition{
		VehicleID:  vehicleID,
		Location:   loc,
		ReportedAt: r.now(),
	}
	if err := r.store.Report(ctx, pos); err != nil {
		return models.VehiclePosition{}, fmt.Errorf("store position: %w", err)
	}

	r.logger.WithFields(log.Fields{
		"vehicle_id": vehicleID,
		"lat":        lat,
		"lng":        lng,
	}).Debug("Position reported")
	return pos, nil
}
