// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP         HTTPConfig
	Store        StoreConfig
	Redis        RedisConfig
	MQTT         MQTTConfig
	Auth         AuthConfig
	Verification VerificationConfig
	Logging      LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// StoreConfig selects the roster and attendance backend.
type StoreConfig struct {
	Backend  string // mongo|memory
	MongoURI string
	MongoDB  string
}

// RedisConfig enables the shared location store and the notification queue
// when Address is set.
type RedisConfig struct {
	Address     string
	Password    string
	Database    int
	NotifyQueue string
	PositionTTL time.Duration
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// MQTTConfig enables the position subscriber when Broker is set.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret string
	JWTExpiry time.Duration
}

// VerificationConfig holds the optional freshness windows. Zero disables.
// Timezone decides which calendar day a manifest covers.
type VerificationConfig struct {
	MaxPositionAge time.Duration
	MaxTokenAge    time.Duration
	Timezone       *time.Location
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // text|json
}

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"

	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMongoURI        = "mongodb://localhost:27017"
	defaultMongoDB         = "boardcheck"
	defaultNotifyQueue     = "notify-queue"
	defaultPositionTTL     = 24 * time.Hour
	defaultMQTTTopic       = "vehicles/+/position"
	defaultMQTTClientID    = "boardcheck"
	defaultJWTSecret       = "default-secret-key-change-in-production"
	defaultJWTExpiry       = 24 * time.Hour
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
)

// Load reads configuration from environment variables, applying defaults. A
// .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Store: StoreConfig{
			Backend:  valueOrDefault("STORE_BACKEND", BackendMongo),
			MongoURI: valueOrDefault("MONGO_URI", defaultMongoURI),
			MongoDB:  valueOrDefault("MONGO_DB", defaultMongoDB),
		},
		Redis: RedisConfig{
			Address:     os.Getenv("REDIS_ADDRESS"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			NotifyQueue: valueOrDefault("NOTIFY_QUEUE", defaultNotifyQueue),
		},
		MQTT: MQTTConfig{
			Broker:   os.Getenv("MQTT_BROKER"),
			Topic:    valueOrDefault("MQTT_TOPIC", defaultMQTTTopic),
			ClientID: valueOrDefault("MQTT_CLIENT_ID", defaultMQTTClientID),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
		},
		Auth: AuthConfig{
			JWTSecret: valueOrDefault("JWT_SECRET", defaultJWTSecret),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format: valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
		},
	}

	if cfg.Store.Backend != BackendMongo && cfg.Store.Backend != BackendMemory {
		return Config{}, fmt.Errorf("invalid STORE_BACKEND %q: want %s or %s", cfg.Store.Backend, BackendMongo, BackendMemory)
	}

	port, err := parsePort("PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	if cfg.Redis.Database, err = parseInt("REDIS_DATABASE", 0); err != nil {
		return Config{}, err
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"POSITION_TTL", defaultPositionTTL, &cfg.Redis.PositionTTL},
		{"JWT_EXPIRY", defaultJWTExpiry, &cfg.Auth.JWTExpiry},
		{"MAX_POSITION_AGE", 0, &cfg.Verification.MaxPositionAge},
		{"MAX_TOKEN_AGE", 0, &cfg.Verification.MaxTokenAge},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.key, d.fallback); err != nil {
			return Config{}, err
		}
	}

	tz := valueOrDefault("TIMEZONE", "Local")
	if cfg.Verification.Timezone, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	val, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return val, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func parsePort(key string, fallback int) (int, error) {
	port, err := parseInt(key, fallback)
	if err != nil {
		return 0, err
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("port %d is out of range", port)
	}
	return port, nil
}
