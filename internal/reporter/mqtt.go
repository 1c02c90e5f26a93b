package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/models"
)

// DefaultTopic matches "vehicles/<vehicle id>/position".
const DefaultTopic = "vehicles/+/position"

// SubscriberOptions configures the MQTT connection.
type SubscriberOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// Subscriber feeds position reports published over MQTT into a Reporter.
type Subscriber struct {
	reporter *Reporter
	client   mqtt.Client
	topic    string
	logger   *log.Entry
}

// NewSubscriber builds an MQTT client. It does not connect until Run.
func NewSubscriber(reporter *Reporter, opts SubscriberOptions, logger *log.Entry) *Subscriber {
	topic := opts.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	s := &Subscriber{
		reporter: reporter,
		topic:    topic,
		logger:   logger.WithField("component", "mqtt"),
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			// subscriptions are lost on reconnect with a clean session
			if token := c.Subscribe(s.topic, 0, s.HandleMessage); token.Wait() && token.Error() != nil {
				s.logger.WithError(token.Error()).Error("Failed to subscribe")
				return
			}
			s.logger.WithField("topic", s.topic).Info("Subscribed to position reports")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			s.logger.WithError(err).Warn("MQTT connection lost")
		})
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username).SetPassword(opts.Password)
	}
	s.client = mqtt.NewClient(clientOpts)
	return s
}

// Run connects and blocks until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	token := s.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	<-ctx.Done()
	s.client.Disconnect(250)
	return nil
}

// HandleMessage decodes one report. The vehicle id in the payload wins over
// the one in the topic.
func (s *Subscriber) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	var report models.PositionReport
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		s.logger.WithError(err).WithField("topic", msg.Topic()).Warn("Discarding malformed position report")
		return
	}
	if report.VehicleID == "" {
		report.VehicleID = vehicleFromTopic(msg.Topic())
	}
	if !report.Complete() {
		s.logger.WithField("topic", msg.Topic()).Warn("Discarding incomplete position report")
		return
	}

	if _, err := s.reporter.Report(context.Background(), report.VehicleID, *report.Lat, *report.Lng); err != nil {
		s.logger.WithError(err).WithField("vehicle_id", report.VehicleID).Error("Failed to store position report")
	}
}

func vehicleFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "vehicles" && parts[2] == "position" {
		return parts[1]
	}
	return ""
}
