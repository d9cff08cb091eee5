// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

// Package config loads Eden's configuration.
//
// Values are layered with koanf: built-in defaults, then an optional YAML
// file, then environment variables. The merged result is validated
// before it is returned. See koanf.go for the file search order and the
// environment variable mapping table.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/eden/internal/models"
)

// Config is the root configuration.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Control    ControlConfig    `koanf:"control"`
	Thresholds ThresholdsConfig `koanf:"thresholds"`
	Sensors    SensorsConfig    `koanf:"sensors"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// DatabaseConfig selects and parameterises the repository backend.
type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // memory, sqlite, duckdb, postgres
	Path         string `koanf:"path"`   // file path for sqlite and duckdb
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	Name         string `koanf:"name"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	SSLMode      string `koanf:"sslmode"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// PostgresDSN builds a pgx connection URL from the discrete fields.
func (d *DatabaseConfig) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}
	return u.String()
}

// ControlConfig tunes the control loop.
type ControlConfig struct {
	Interval         time.Duration `koanf:"interval"`      // sleep between cycles
	CycleTimeout     time.Duration `koanf:"cycle_timeout"` // bound on one sense..publish pass
	TrendWindowHours int           `koanf:"trend_window_hours"`
}

// ThresholdsConfig holds the decision limits.
type ThresholdsConfig struct {
	MinSoilMoisture   int     `koanf:"min_soil_moisture"`
	MinWaterLevel     int     `koanf:"min_water_level"`
	MinEnergyLevel    float64 `koanf:"min_energy_level"`
	MinFeedLevel      float64 `koanf:"min_feed_level"`
	MinWaterPerAnimal float64 `koanf:"min_water_per_animal"`
	HighTemperature   float64 `koanf:"high_temperature"`
}

// Model converts to the decision package's representation.
func (t ThresholdsConfig) Model() models.Thresholds {
	return models.Thresholds{
		MinSoilMoisture:   t.MinSoilMoisture,
		MinWaterLevel:     t.MinWaterLevel,
		MinEnergyLevel:    t.MinEnergyLevel,
		MinFeedLevel:      t.MinFeedLevel,
		MinWaterPerAnimal: t.MinWaterPerAnimal,
		HighTemperature:   t.HighTemperature,
	}
}

// SensorsConfig selects where readings come from.
type SensorsConfig struct {
	Mode      string        `koanf:"mode"` // simulated, http
	URL       string        `koanf:"url"`  // gateway base URL for mode=http
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"` // requests per second against the gateway
	HerdSize  int           `koanf:"herd_size"`
	Species   string        `koanf:"species"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for http.Server.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig covers sessions, rate limits and the seeded admin account.
type SecurityConfig struct {
	SessionStore     string        `koanf:"session_store"` // memory, badger
	SessionStorePath string        `koanf:"session_path"`
	SessionTTL       time.Duration `koanf:"session_ttl"`
	CookieSecure     bool          `koanf:"cookie_secure"`
	RateLimitReqs    int           `koanf:"rate_limit_reqs"`
	RateLimitWindow  time.Duration `koanf:"rate_limit_window"`
	CORSOrigins      []string      `koanf:"cors_origins"`
	AdminUsername    string        `koanf:"admin_username"`
	AdminPassword    string        `koanf:"admin_password"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads the layered configuration.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
