package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/models"
)

// DefaultQueue is the rmq queue carrying guardian notifications.
const DefaultQueue = "notify-queue"

// Publisher is the part of rmq.Queue used to enqueue notifications.
type Publisher interface {
	PublishBytes(payload ...[]byte) error
}

// QueueNotifier publishes notifications to an rmq queue; a separate
// `notify run` process delivers them.
type QueueNotifier struct {
	queue  Publisher
	logger *log.Entry
}

// NewQueueNotifier creates a Notifier publishing to queue.
func NewQueueNotifier(queue Publisher, logger *log.Entry) *QueueNotifier {
	return &QueueNotifier{queue: queue, logger: logger.WithField("component", "notify")}
}

func (n *QueueNotifier) NotifyGuardian(ctx context.Context, rider models.Rider, vehicleID string, at time.Time) {
	b := NewBoarding(rider, vehicleID, at)
	payload, err := json.Marshal(b)
	if err != nil {
		n.logger.WithError(err).Error("Failed to encode notification")
		return
	}
	if err := n.queue.PublishBytes(payload); err != nil {
		n.logger.WithError(err).WithFields(log.Fields{"rider_id": b.RiderID, "vehicle_id": vehicleID}).Error("Failed to enqueue notification")
	}
}

// BatchConsumer delivers queued notifications. Undecodable or undeliverable
// payloads are rejected so they stay inspectable in the rejected list.
type BatchConsumer struct {
	sender Sender
	logger *log.Entry
}

// NewBatchConsumer creates an rmq.BatchConsumer delivering through sender.
func NewBatchConsumer(sender Sender, logger *log.Entry) *BatchConsumer {
	return &BatchConsumer{sender: sender, logger: logger.WithField("component", "notify")}
}

func (c *BatchConsumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		var b Boarding
		if err := json.Unmarshal([]byte(delivery.Payload()), &b); err != nil {
			c.logger.WithError(err).Error("Discarding malformed notification")
			c.settle(delivery.Reject())
			continue
		}
		if err := deliver(context.Background(), c.sender, b, c.logger); err != nil {
			c.settle(delivery.Reject())
			continue
		}
		c.settle(delivery.Ack())
	}
}

func (c *BatchConsumer) settle(err error) {
	if err != nil {
		c.logger.WithError(err).Error("Failed to settle delivery")
	}
}
