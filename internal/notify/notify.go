// Package notify delivers boarding notifications to guardians.
//
// Notifications are fire-and-forget: NotifyGuardian never blocks on delivery
// and never reports failure to the caller, so a slow or broken transport
// cannot affect attendance records.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/models"
)

// Notifier is what the verification engine calls after recording a boarding.
type Notifier interface {
	NotifyGuardian(ctx context.Context, rider models.Rider, vehicleID string, at time.Time)
}

// Sender delivers one message to one contact.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Boarding is a queued guardian notification.
type Boarding struct {
	ID        string    `json:"id"`
	RiderID   string    `json:"rider_id"`
	RiderName string    `json:"rider_name"`
	Contact   string    `json:"contact"`
	VehicleID string    `json:"vehicle_id"`
	At        time.Time `json:"at"`
}

// NewBoarding builds the notification for rider boarding vehicleID at at.
func NewBoarding(rider models.Rider, vehicleID string, at time.Time) Boarding {
	return Boarding{
		ID:        uuid.NewString(),
		RiderID:   rider.ID.Hex(),
		RiderName: rider.Name,
		Contact:   rider.GuardianContact(),
		VehicleID: vehicleID,
		At:        at,
	}
}

// Message is the SMS text sent to the guardian.
func (b Boarding) Message() string {
	return fmt.Sprintf("Dear Parent, your ward %s has safely boarded Bus No. %s at %s. - VET IAS Transport.",
		b.RiderName, b.VehicleID, b.At.Format("15:04"))
}

func deliver(ctx context.Context, sender Sender, b Boarding, logger *log.Entry) error {
	fields := log.Fields{"notification_id": b.ID, "rider_id": b.RiderID, "vehicle_id": b.VehicleID}
	if b.Contact == "" {
		logger.WithFields(fields).Warn("No guardian contact on file, dropping notification")
		return nil
	}
	if err := sender.Send(ctx, b.Contact, b.Message()); err != nil {
		logger.WithError(err).WithFields(fields).Error("Failed to notify guardian")
		return err
	}
	logger.WithFields(fields).Info("Guardian notified")
	return nil
}

// LogSender writes messages to the log instead of a real SMS gateway.
type LogSender struct {
	logger *log.Entry
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *log.Entry) *LogSender {
	return &LogSender{logger: logger.WithField("component", "sms")}
}

func (s *LogSender) Send(ctx context.Context, to, body string) error {
	s.logger.WithFields(log.Fields{"to": to, "message": body}).Info("SMS simulation")
	return nil
}
