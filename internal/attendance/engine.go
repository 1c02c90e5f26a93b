// Package attendance verifies that a rider physically boarded a vehicle and
// records the result.
//
// A token-scan attempt passes through four checks in order: the boarding
// token must parse, the vehicle must have a live position, the rider must be
// within GeofenceRadiusMeters of it, and the presented device must match the
// rider's bound device (or be bound on first use). Only then is a record
// written and the guardian notified.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/binding"
	"github.com/ukydev/boardcheck/internal/db"
	"github.com/ukydev/boardcheck/internal/geo"
	"github.com/ukydev/boardcheck/internal/location"
	"github.com/ukydev/boardcheck/internal/models"
	"github.com/ukydev/boardcheck/internal/notify"
)

// GeofenceRadiusMeters is the maximum rider-to-vehicle distance accepted.
const GeofenceRadiusMeters = 15.0

// HistoryLimit caps the records returned by History.
const HistoryLimit = 100

// Binder is the device binding check the engine depends on.
type Binder interface {
	CheckAndBind(ctx context.Context, riderID, deviceID string) (binding.Outcome, string, error)
}

// Options tune the optional freshness checks. Zero values disable them.
type Options struct {
	MaxPositionAge time.Duration
	MaxTokenAge    time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Attempt is one rider's token-scan request.
type Attempt struct {
	RiderID  string
	Token    string
	Lat      float64
	Lng      float64
	DeviceID string
}

// Engine runs attendance attempts.
type Engine struct {
	riders    db.RiderCollection
	records   db.AttendanceCollection
	positions location.Store
	binder    Binder
	notifier  notify.Notifier
	opts      Options
	logger    *log.Entry
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(riders db.RiderCollection, records db.AttendanceCollection, positions location.Store, binder Binder, notifier notify.Notifier, logger *log.Entry, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		riders:    riders,
		records:   records,
		positions: positions,
		binder:    binder,
		notifier:  notifier,
		opts:      opts,
		logger:    logger.WithField("component", "attendance"),
	}
}

// Verify runs a token-scan attempt. Refusals are returned as
// *VerificationError; any other error is an infrastructure failure.
func (e *Engine) Verify(ctx context.Context, a Attempt) (*models.AttendanceRecord, error) {
	now := e.opts.Now()
	fields := log.Fields{"rider_id": a.RiderID}

	token, err := ParseToken(a.Token)
	if err != nil {
		e.logger.WithFields(fields).Info("Rejected malformed boarding token")
		return nil, err
	}
	fields["vehicle_id"] = token.VehicleID
	if !token.Fresh(now, e.opts.MaxTokenAge) {
		e.logger.WithFields(fields).Info("Rejected expired boarding token")
		return nil, ErrInvalidToken
	}

	pos, ok, err := e.positions.Lookup(ctx, token.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("lookup vehicle position: %w", err)
	}
	if !ok {
		e.logger.WithFields(fields).Info("Vehicle has no live position")
		return nil, ErrVehicleNotActive
	}
	if e.opts.MaxPositionAge > 0 && now.Sub(pos.ReportedAt) > e.opts.MaxPositionAge {
		e.logger.WithFields(fields).WithField("reported_at", pos.ReportedAt).Info("Vehicle position is stale")
		return nil, ErrStalePosition
	}

	riderAt := models.Location{Lat: a.Lat, Lng: a.Lng}
	distance := geo.Between(riderAt, pos.Location)
	if !withinGeofence(distance) {
		rounded := roundMeters(distance)
		e.logger.WithFields(fields).WithField("distance_m", rounded).Info("Rider outside geofence")
		return nil, geofenceError(rounded)
	}

	if a.DeviceID == "" {
		return nil, ErrMissingDeviceID
	}
	rider, err := e.rider(ctx, a.RiderID)
	if err != nil {
		return nil, err
	}
	outcome, bound, err := e.binder.CheckAndBind(ctx, a.RiderID, a.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("check device binding: %w", err)
	}
	if outcome == binding.Rejected {
		e.logger.WithFields(fields).WithFields(log.Fields{
			"security_event":   "device_mismatch",
			"presented_device": a.DeviceID,
			"bound_device":     bound,
		}).Warn("Device mismatch on boarding attempt")
		return nil, ErrDeviceMismatch
	}

	record := models.AttendanceRecord{
		RiderID:   a.RiderID,
		RiderName: rider.Name,
		MarkedAt:  now,
		Method:    models.MethodTokenScan,
		VehicleID: token.VehicleID,
		Location:  &riderAt,
		DeviceID:  a.DeviceID,
		Status:    models.StatusVerified,
	}
	saved, err := e.records.InsertAttendance(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("insert attendance: %w", err)
	}

	e.logger.WithFields(fields).WithFields(log.Fields{
		"binding":    outcome.String(),
		"distance_m": roundMeters(distance),
	}).Info("Attendance verified")
	e.notifier.NotifyGuardian(ctx, *rider, token.VehicleID, now)
	return saved, nil
}

// MarkManual records attendance for a rider identified by id or name without
// geofence or device checks. It is reserved for vehicle operators.
func (e *Engine) MarkManual(ctx context.Context, vehicleID, identifier string) (*models.AttendanceRecord, error) {
	if vehicleID == "" {
		return nil, ErrVehicleNotActive
	}
	rider, err := e.riders.FindRiderByIdentifier(ctx, identifier)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrRiderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find rider: %w", err)
	}

	now := e.opts.Now()
	record := models.AttendanceRecord{
		RiderID:   rider.ID.Hex(),
		RiderName: rider.Name,
		MarkedAt:  now,
		Method:    models.MethodManual,
		VehicleID: vehicleID,
		Status:    models.StatusVerifiedManual,
	}
	saved, err := e.records.InsertAttendance(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("insert attendance: %w", err)
	}

	e.logger.WithFields(log.Fields{"rider_id": record.RiderID, "vehicle_id": vehicleID}).Info("Manual attendance recorded")
	e.notifier.NotifyGuardian(ctx, *rider, vehicleID, now)
	return saved, nil
}

// Manifest lists the records for vehicleID on the calendar day containing day
// in loc.
func (e *Engine) Manifest(ctx context.Context, vehicleID string, day time.Time, loc *time.Location) ([]models.ManifestEntry, error) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := day.In(loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	records, err := e.records.FindAttendanceByVehicle(ctx, vehicleID, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	entries := make([]models.ManifestEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, r.ManifestEntry(loc))
	}
	return entries, nil
}

// History returns the rider's most recent records, newest first.
func (e *Engine) History(ctx context.Context, riderID string) ([]models.AttendanceRecord, error) {
	records, err := e.records.FindAttendanceByRider(ctx, riderID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return records, nil
}

func (e *Engine) rider(ctx context.Context, id string) (*models.Rider, error) {
	rider, err := e.riders.FindRiderByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrRiderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find rider: %w", err)
	}
	return rider, nil
}

// withinGeofence fails closed: NaN distances are outside.
func withinGeofence(distance float64) bool {
	return distance <= GeofenceRadiusMeters
}

func roundMeters(d float64) int {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return -1
	}
	return int(math.Round(d))
}
