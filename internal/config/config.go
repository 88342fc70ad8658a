package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string `validate:"required,url"`

	// Location is the initial query; it can be changed at runtime.
	Location    string
	AutoRefresh bool

	// RefreshInterval controls how often auto refresh fetches new data.
	RefreshInterval time.Duration `validate:"gt=0"`
	// TickInterval is the synthetic telemetry period.
	TickInterval time.Duration `validate:"gt=0"`
	// HTTPTimeout bounds each upstream read.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// SyntheticSeed seeds the telemetry noise; 0 seeds from the clock.
	SyntheticSeed int64

	// In-memory history retention.
	StoreMaxHistory int           `validate:"gte=0"` // max number of snapshots per location (0 = unlimited)
	StoreMaxAge     time.Duration `validate:"gte=0"` // max age of snapshots (0 = unlimited)

	KafkaBrokers []string
	KafkaTopic   string `validate:"required_with=KafkaBrokers"`

	Port            string `validate:"required,numeric"`
	LogLevel        string `validate:"oneof=debug info warn warning error"`
	LogFormat       string `validate:"oneof=json text"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment with sensible defaults. A .env
// file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5")
	cfg.Location = strings.TrimSpace(os.Getenv("WEATHER_LOCATION"))

	var err error
	if cfg.AutoRefresh, err = getenvBool("AUTO_REFRESH", false); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "30s"); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = getenvDuration("TICK_INTERVAL", "1s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	seed, err := strconv.ParseInt(getenvDefault("SYNTHETIC_SEED", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNTHETIC_SEED: %w", err)
	}
	cfg.SyntheticSeed = seed

	// Store retention: 120 merges is one hour at the default refresh interval.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 120)

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = getenvDefault("KAFKA_TOPIC", "weather-snapshots")

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "json"))

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// KafkaEnabled reports whether snapshots should be published to Kafka.
func (c *AppConfig) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
