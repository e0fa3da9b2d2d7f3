package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka publishing is optional: no brokers means no publisher.
	KafkaBrokers        []string
	KafkaIncidentsTopic string

	// Geocoder configuration. MinInterval is the floor between two
	// provider requests; Nominatim's usage policy asks for one per second.
	GeocoderBaseURL     string
	GeocoderUserAgent   string
	GeocoderTimeout     time.Duration
	GeocoderMinInterval time.Duration

	// Ingestion sources. Either may be empty; at least one must be set.
	SourceTableURL   string
	SourceCaptionURL string
	SourceTimeout    time.Duration
	IngestSchedule   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocoderTimeout, err := parseDuration("GEOCODER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocoderMinInterval, err := parseDuration("GEOCODER_MIN_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parseDuration("SOURCE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:        parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaIncidentsTopic: envOrDefault("KAFKA_INCIDENTS_TOPIC", "incidents"),

		GeocoderBaseURL:     envOrDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent:   envOrDefault("GEOCODER_USER_AGENT", "vigia/1.0"),
		GeocoderTimeout:     geocoderTimeout,
		GeocoderMinInterval: geocoderMinInterval,

		SourceTableURL:   os.Getenv("SOURCE_TABLE_URL"),
		SourceCaptionURL: os.Getenv("SOURCE_CAPTION_URL"),
		SourceTimeout:    sourceTimeout,
		IngestSchedule:   envOrDefault("INGEST_SCHEDULE", "*/15 * * * *"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.SourceTableURL == "" && cfg.SourceCaptionURL == "" {
		return nil, errors.New("at least one of SOURCE_TABLE_URL and SOURCE_CAPTION_URL is required")
	}
	return cfg, nil
}

// KafkaEnabled reports whether incident publishing is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
