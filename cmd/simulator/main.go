// Command simulator drives one bus along a loop of stops, reporting its
// position as the on-board agent would and printing the boarding token the
// bus displays.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/geo"
	"github.com/ukydev/boardcheck/internal/handlers"
	"github.com/ukydev/boardcheck/internal/models"
)

type simConfig struct {
	APIURL       string
	Username     string
	Password     string
	AuthToken    string
	VehicleID    string
	MQTTBroker   string
	Start        models.Location
	Stops        int
	LoopMeters   float64
	SpeedKmh     float64
	DwellTicks   int
	TokenEvery   int
	Interval     time.Duration
	RequestLimit time.Duration
}

func loadSimConfig(getenv func(string) string) simConfig {
	cfg := simConfig{
		APIURL:       "http://localhost:8080/api",
		Username:     getenv("SIM_USERNAME"),
		Password:     getenv("SIM_PASSWORD"),
		AuthToken:    getenv("SIM_AUTH_TOKEN"),
		VehicleID:    getenv("SIM_VEHICLE_ID"),
		MQTTBroker:   getenv("MQTT_BROKER"),
		Start:        models.Location{Lat: 12.9716, Lng: 77.5946},
		Stops:        6,
		LoopMeters:   3000,
		SpeedKmh:     25,
		DwellTicks:   5,
		TokenEvery:   15,
		Interval:     2 * time.Second,
		RequestLimit: 10 * time.Second,
	}
	if v := getenv("API_BASE_URL"); v != "" {
		cfg.APIURL = v
	}
	if v, err := strconv.ParseFloat(getenv("SIM_START_LAT"), 64); err == nil {
		cfg.Start.Lat = v
	}
	if v, err := strconv.ParseFloat(getenv("SIM_START_LNG"), 64); err == nil {
		cfg.Start.Lng = v
	}
	if n, err := strconv.Atoi(getenv("SIM_STOPS")); err == nil && n >= 2 {
		cfg.Stops = n
	}
	if v, err := strconv.ParseFloat(getenv("SIM_SPEED_KMH"), 64); err == nil && v > 0 {
		cfg.SpeedKmh = v
	}
	if n, err := strconv.Atoi(getenv("SIM_TICK_SECONDS")); err == nil && n >= 1 {
		cfg.Interval = time.Duration(n) * time.Second
	}
	return cfg
}

// --- API client ---

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string, timeout time.Duration) *apiClient {
	return &apiClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: timeout}}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{
		UserType: models.UserTypeStaff,
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return models.LoginResponse{}, err
	}
	c.token = resp.Token
	return resp, nil
}

func (c *apiClient) boardingToken(ctx context.Context) (handlers.TokenResponse, error) {
	var resp handlers.TokenResponse
	err := c.do(ctx, http.MethodGet, "/vehicles/token", nil, &resp)
	return resp, err
}

// --- Position sinks ---

type positionSink interface {
	Send(ctx context.Context, report models.PositionReport) error
}

type httpSink struct {
	api *apiClient
}

func (s *httpSink) Send(ctx context.Context, report models.PositionReport) error {
	return s.api.do(ctx, http.MethodPost, "/vehicles/heartbeat", report, nil)
}

type mqttSink struct {
	client mqtt.Client
}

func newMQTTSink(broker, vehicleID string) (*mqttSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("boardcheck-sim-" + vehicleID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &mqttSink{client: client}, nil
}

func positionTopic(vehicleID string) string {
	return fmt.Sprintf("vehicles/%s/position", vehicleID)
}

func (s *mqttSink) Send(ctx context.Context, report models.PositionReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	token := s.client.Publish(positionTopic(report.VehicleID), 0, false, payload)
	token.Wait()
	return token.Error()
}

// --- Route & movement ---

type busRoute struct {
	Stops     []models.Location
	SegIndex  int
	SegOffset float64 // meters along current segment
}

type busState struct {
	VehicleID string
	Position  models.Location
	SpeedKmh  float64
	Dwell     int
	Route     *busRoute
}

func jitterLocation(base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLng := (rand.Float64()*2 - 1) * (meters / lngMetersPerDeg)
	return models.Location{Lat: base.Lat + dLat, Lng: base.Lng + dLng}
}

// planLoop places stops around start, closing back on start.
func planLoop(start models.Location, stops int, meters float64) *busRoute {
	pts := []models.Location{start}
	for i := 1; i < stops; i++ {
		pts = append(pts, jitterLocation(start, meters/2))
	}
	pts = append(pts, start)
	return &busRoute{Stops: pts}
}

func lerp(a, b models.Location, t float64) models.Location {
	return models.Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lng: a.Lng + (b.Lng-a.Lng)*t}
}

// step advances the bus by one tick. It reports whether the bus reached a
// stop during the tick.
func step(s *busState, tickSec float64, dwellTicks int) bool {
	if s.Dwell > 0 {
		s.Dwell--
		return false
	}
	r := s.Route
	remaining := s.SpeedKmh * 1000 * tickSec / 3600
	for remaining > 0 && r.SegIndex < len(r.Stops)-1 {
		a, b := r.Stops[r.SegIndex], r.Stops[r.SegIndex+1]
		segLen := geo.Between(a, b)
		left := segLen - r.SegOffset
		if remaining >= left {
			s.Position = b
			r.SegIndex++
			r.SegOffset = 0
			s.Dwell = dwellTicks
			if r.SegIndex >= len(r.Stops)-1 {
				r.SegIndex = 0
			}
			return true
		}
		r.SegOffset += remaining
		s.Position = lerp(a, b, r.SegOffset/segLen)
		remaining = 0
	}
	return false
}

func runBus(ctx context.Context, cfg simConfig, s *busState, sink positionSink, api *apiClient) {
	tick := time.NewTicker(cfg.Interval)
	defer tick.Stop()

	for n := 0; ; n++ {
		if n%cfg.TokenEvery == 0 {
			if tok, err := api.boardingToken(ctx); err != nil {
				log.WithError(err).Warn("Failed to fetch boarding token")
			} else {
				log.WithFields(log.Fields{"vehicle_id": tok.VehicleID, "token": tok.Token}).Info("Boarding token")
			}
		}

		lat, lng := s.Position.Lat, s.Position.Lng
		err := sink.Send(ctx, models.PositionReport{VehicleID: s.VehicleID, Lat: &lat, Lng: &lng})
		if err != nil {
			log.WithError(err).Error("Failed to report position")
		} else {
			log.WithFields(log.Fields{"vehicle_id": s.VehicleID, "lat": lat, "lng": lng}).Debug("Reported position")
		}

		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		if step(s, cfg.Interval.Seconds(), cfg.DwellTicks) {
			log.WithFields(log.Fields{"vehicle_id": s.VehicleID, "stop": s.Route.SegIndex}).Info("Arrived at stop")
		}
	}
}

func main() {
	_ = godotenv.Load()
	cfg := loadSimConfig(os.Getenv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := newAPIClient(cfg.APIURL, cfg.AuthToken, cfg.RequestLimit)
	vehicleID := cfg.VehicleID
	if cfg.Username != "" {
		resp, err := api.login(ctx, cfg.Username, cfg.Password)
		if err != nil {
			log.WithError(err).Fatal("Operator login failed")
		}
		if resp.VehicleID != "" {
			vehicleID = resp.VehicleID
		}
	}
	if api.token == "" {
		log.Fatal("Set SIM_USERNAME/SIM_PASSWORD or SIM_AUTH_TOKEN")
	}
	if vehicleID == "" {
		log.Fatal("No vehicle id: log in as an operator or set SIM_VEHICLE_ID")
	}

	var sink positionSink = &httpSink{api: api}
	if cfg.MQTTBroker != "" {
		ms, err := newMQTTSink(cfg.MQTTBroker, vehicleID)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MQTT broker")
		}
		defer ms.client.Disconnect(250)
		sink = ms
	}

	state := &busState{
		VehicleID: vehicleID,
		Position:  cfg.Start,
		SpeedKmh:  cfg.SpeedKmh,
		Route:     planLoop(cfg.Start, cfg.Stops, cfg.LoopMeters),
	}

	log.WithFields(log.Fields{
		"vehicle_id": vehicleID,
		"api_url":    cfg.APIURL,
		"mqtt":       cfg.MQTTBroker != "",
		"interval":   cfg.Interval,
	}).Info("Starting bus simulation")

	runBus(ctx, cfg, state, sink, api)
	log.Info("Simulation stopped")
}
