// Package binding owns the one-to-one relation between a rider and the device
// they board with.
//
// The first device a rider presents is bound automatically (trust on first
// use). Afterwards only that device is accepted until an administrator resets
// the binding; every reset is written to the audit log.
package binding

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/db"
	"github.com/ukydev/boardcheck/internal/models"
)

// Outcome is the result of CheckAndBind.
type Outcome int

const (
	// Matched means the presented device is the bound device.
	Matched Outcome = iota + 1
	// AutoBound means the rider had no device and the presented one is now bound.
	AutoBound
	// Rejected means a different device is bound to the rider, or the device
	// is bound to another rider. Nothing was changed.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case AutoBound:
		return "auto_bound"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

const defaultResetReason = "Not specified"

// Authority checks, binds and resets rider devices.
type Authority struct {
	devices db.DeviceCollection
	audit   db.AuditLog
	now     func() time.Time
	logger  *log.Entry
}

// NewAuthority creates an Authority over the roster's device field.
func NewAuthority(devices db.DeviceCollection, audit db.AuditLog, logger *log.Entry) *Authority {
	return &Authority{
		devices: devices,
		audit:   audit,
		now:     time.Now,
		logger:  logger.WithField("component", "binding"),
	}
}

// CheckAndBind evaluates deviceID against the rider's binding, binding it if
// the rider has none. The bind is a compare-and-set in the roster, so among
// concurrent first uses exactly one device wins and the others are judged
// against it. A device already bound to another rider is rejected, keeping
// the relation one-to-one. The second return value is the device bound to
// the rider after the call.
func (a *Authority) CheckAndBind(ctx context.Context, riderID, deviceID string) (Outcome, string, error) {
	if deviceID == "" {
		return 0, "", fmt.Errorf("empty device id")
	}

	bound, applied, err := a.devices.BindDeviceIfUnset(ctx, riderID, deviceID)
	if errors.Is(err, db.ErrDeviceInUse) {
		a.logger.WithFields(log.Fields{
			"security_event": "device_in_use",
			"rider_id":       riderID,
			"device_id":      deviceID,
		}).Warn("Device already bound to another rider")
		return Rejected, bound, nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("bind device for rider %s: %w", riderID, err)
	}

	switch {
	case applied:
		a.logger.WithFields(log.Fields{"rider_id": riderID, "device_id": deviceID}).Info("Device bound on first use")
		return AutoBound, bound, nil
	case bound == deviceID:
		return Matched, bound, nil
	default:
		return Rejected, bound, nil
	}
}

// Reset clears the rider's binding and records the previous device in the
// audit log. It is not authorized here; callers gate it. The old binding is
// only kept in the audit text. Resetting an unbound rider still writes an
// audit entry.
func (a *Authority) Reset(ctx context.Context, riderID, reason, actor string) (models.AuditEntry, error) {
	previous, err := a.devices.ClearDevice(ctx, riderID)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("clear device for rider %s: %w", riderID, err)
	}

	if reason == "" {
		reason = defaultResetReason
	}
	old := previous
	if old == "" {
		old = "None"
	}
	entry := models.AuditEntry{
		Action:           fmt.Sprintf("Device Reset (Old: %s)", old),
		Actor:            actor,
		RiderID:          riderID,
		PreviousDeviceID: previous,
		Reason:           reason,
		CreatedAt:        a.now(),
	}
	if err := a.audit.AppendAudit(ctx, entry); err != nil {
		// the device is already cleared; surface the lost audit loudly
		a.logger.WithError(err).WithFields(log.Fields{
			"rider_id":        riderID,
			"previous_device": previous,
			"actor":           actor,
		}).Error("Device reset but audit entry not written")
		return models.AuditEntry{}, fmt.Errorf("append audit for rider %s: %w", riderID, err)
	}

	a.logger.WithFields(log.Fields{
		"rider_id":        riderID,
		"previous_device": previous,
		"actor":           actor,
		"reason":          reason,
	}).Info("Device binding reset")
	return entry, nil
}
