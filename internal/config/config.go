// Package config loads tool settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all settings for one map-generation run, populated from
// environment variables with defaults tuned for the Dallas dataset.
type Config struct {
	InputCSV   string `env:"INPUT_CSV" envDefault:"data/external/police_incidents.csv"`
	OutputHTML string `env:"OUTPUT_HTML" envDefault:"reports/property_crimes_map.html"`
	CachePath  string `env:"GEOCODE_CACHE" envDefault:"data/external/zip_coordinates.json"`
	TargetYear int    `env:"TARGET_YEAR" envDefault:"2024"`

	// Geocoding. The qualifier pins short numeric zip queries to the target
	// municipality; the delay is the rate-limit floor between external calls.
	GeocodeQualifier   string        `env:"GEOCODE_QUALIFIER" envDefault:"Dallas, Texas, USA"`
	NominatimBaseURL   string        `env:"NOMINATIM_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
	NominatimUserAgent string        `env:"NOMINATIM_USER_AGENT" envDefault:"incident-map-etl/1.0"`
	GeocodeDelay       time.Duration `env:"GEOCODE_DELAY" envDefault:"1s"`
	GeocodeTimeout     time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"10s"`

	// Kafka publishing is enabled by setting brokers.
	KafkaBrokers []string `env:"KAFKA_BROKERS"`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"incident-location-summaries"`

	// MetricsAddr enables the debug HTTP server when set, e.g. ":8080".
	MetricsAddr string `env:"METRICS_ADDR"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	MapTitle     string  `env:"MAP_TITLE" envDefault:"Dallas Property Crimes Map - 2024"`
	MapSubtitle  string  `env:"MAP_SUBTITLE" envDefault:"Burglary & Property-related crimes"`
	MapSource    string  `env:"MAP_SOURCE" envDefault:"Dallas Police Department"`
	MapCenterLat float64 `env:"MAP_CENTER_LAT" envDefault:"32.7767"`
	MapCenterLon float64 `env:"MAP_CENTER_LON" envDefault:"-96.7970"`
	MapZoom      int     `env:"MAP_ZOOM" envDefault:"10"`
}

// KafkaEnabled reports whether summaries should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults
// where unset, and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.InputCSV == "" {
		return nil, errors.New("INPUT_CSV is required")
	}
	if cfg.OutputHTML == "" {
		return nil, errors.New("OUTPUT_HTML is required")
	}
	if cfg.CachePath == "" {
		return nil, errors.New("GEOCODE_CACHE is required")
	}
	if cfg.TargetYear < 1990 || cfg.TargetYear > 2100 {
		return nil, fmt.Errorf("TARGET_YEAR %d out of range", cfg.TargetYear)
	}
	if cfg.GeocodeDelay < 0 {
		return nil, errors.New("GEOCODE_DELAY must not be negative")
	}
	if cfg.GeocodeTimeout <= 0 {
		return nil, errors.New("GEOCODE_TIMEOUT must be positive")
	}
	if cfg.NominatimUserAgent == "" {
		return nil, errors.New("NOMINATIM_USER_AGENT is required by the Nominatim usage policy")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.MapZoom < 1 || cfg.MapZoom > 19 {
		return nil, fmt.Errorf("MAP_ZOOM %d out of range", cfg.MapZoom)
	}

	return &cfg, nil
}
