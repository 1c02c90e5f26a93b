package reporter

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boardcheck/internal/location"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

// fakeMessage implements mqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestReporter_Report(t *testing.T) {
	store := location.NewMemoryStore()
	r := New(store, testLogger())
	fixed := time.Date(2026, 10, 19, 7, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	pos, err := r.Report(context.Background(), "Bus-10", 12.9, 77.6)
	require.NoError(t, err)
	assert.Equal(t, fixed, pos.ReportedAt)

	stored, ok, err := store.Lookup(context.Background(), "Bus-10")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pos, stored)
}

func TestReporter_MissingVehicle(t *testing.T) {
	r := New(location.NewMemoryStore(), testLogger())
	_, err := r.Report(context.Background(), "", 1, 2)
	assert.ErrorIs(t, err, ErrMissingVehicleID)
}

func TestReporter_InvalidCoordinates(t *testing.T) {
	store := location.NewMemoryStore()
	r := New(store, testLogger())

	for _, c := range []struct{ lat, lng float64 }{
		{95, 77.6},
		{12.9, -181},
		{math.NaN(), 77.6},
		{12.9, math.Inf(1)},
	} {
		_, err := r.Report(context.Background(), "Bus-10", c.lat, c.lng)
		assert.ErrorIs(t, err, ErrInvalidLocation)
	}

	_, ok, err := store.Lookup(context.Background(), "Bus-10")
	require.NoError(t, err)
	assert.False(t, ok, "rejected reports never reach the store")
}

func TestSubscriber_HandleMessage(t *testing.T) {
	tests := []struct {
		name      string
		topic     string
		payload   string
		vehicleID string
		stored    bool
	}{
		{"vehicle in payload", "vehicles/Bus-10/position", `{"vehicle_id":"Bus-10","lat":12.9,"lng":77.6}`, "Bus-10", true},
		{"vehicle from topic", "vehicles/Bus-11/position", `{"lat":12.9,"lng":77.6}`, "Bus-11", true},
		{"malformed json", "vehicles/Bus-12/position", `{bad`, "Bus-12", false},
		{"missing coordinates", "vehicles/Bus-13/position", `{"lat":12.9}`, "Bus-13", false},
		{"latitude out of range", "vehicles/Bus-14/position", `{"lat":95,"lng":77.6}`, "Bus-14", false},
		{"unknown topic without vehicle", "fleet/position", `{"lat":1,"lng":2}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := location.NewMemoryStore()
			sub := NewSubscriber(New(store, testLogger()), SubscriberOptions{Broker: "tcp://localhost:1883", ClientID: "test"}, testLogger())

			sub.HandleMessage(nil, &fakeMessage{topic: tt.topic, payload: []byte(tt.payload)})

			_, ok, err := store.Lookup(context.Background(), tt.vehicleID)
			require.NoError(t, err)
			assert.Equal(t, tt.stored, ok)
		})
	}
}

func TestVehicleFromTopic(t *testing.T) {
	assert.Equal(t, "Bus-10", vehicleFromTopic("vehicles/Bus-10/position"))
	assert.Equal(t, "", vehicleFromTopic("vehicles/Bus-10"))
	assert.Equal(t, "", vehicleFromTopic("other/Bus-10/position"))
}
