package notify

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/models"
)

// Dispatcher is an in-process Notifier backed by a bounded channel and a
// single worker. It is used when no queue is configured. Notifications that
// do not fit in the buffer are dropped and logged.
type Dispatcher struct {
	sender Sender
	jobs   chan Boarding
	logger *log.Entry

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher creates a Dispatcher with room for buffer pending notifications.
func NewDispatcher(sender Sender, buffer int, logger *log.Entry) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		sender: sender,
		jobs:   make(chan Boarding, buffer),
		logger: logger.WithField("component", "notify"),
		done:   make(chan struct{}),
	}
}

func (d *Dispatcher) NotifyGuardian(ctx context.Context, rider models.Rider, vehicleID string, at time.Time) {
	b := NewBoarding(rider, vehicleID, at)
	select {
	case d.jobs <- b:
	default:
		d.logger.WithFields(log.Fields{"rider_id": b.RiderID, "vehicle_id": vehicleID}).Warn("Notification buffer full, dropping notification")
	}
}

// Run delivers notifications until ctx is cancelled, then drains what is
// already buffered.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)
	for {
		select {
		case b := <-d.jobs:
			_ = deliver(context.Background(), d.sender, b, d.logger)
		case <-ctx.Done():
			for {
				select {
				case b := <-d.jobs:
					_ = deliver(context.Background(), d.sender, b, d.logger)
				default:
					return nil
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}
