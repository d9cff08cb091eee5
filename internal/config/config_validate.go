// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	validDrivers       = map[string]bool{"memory": true, "sqlite": true, "duckdb": true, "postgres": true}
	validSensorModes   = map[string]bool{"simulated": true, "http": true}
	validSessionStores = map[string]bool{"memory": true, "badger": true}
	validLogLevels     = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validLogFormats    = map[string]bool{"json": true, "console": true}
)

// minAdminPasswordLength matches the registration rule.
const minAdminPasswordLength = 8

// Validate checks that the merged configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateControl(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateSensors(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("DB_DRIVER must be one of: memory, sqlite, duckdb, postgres")
	}
	switch c.Database.Driver {
	case "sqlite", "duckdb":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the %s driver", c.Database.Driver)
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for the postgres driver")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("DB_PORT must be between 1 and 65535")
		}
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must not be negative")
	}
	return nil
}

func (c *Config) validateControl() error {
	if c.Control.Interval < time.Second {
		return fmt.Errorf("CONTROL_INTERVAL must be at least 1s, got %v", c.Control.Interval)
	}
	if c.Control.CycleTimeout <= 0 {
		return fmt.Errorf("CONTROL_CYCLE_TIMEOUT must be positive")
	}
	if c.Control.TrendWindowHours < 1 {
		return fmt.Errorf("CONTROL_TREND_WINDOW_HOURS must be at least 1")
	}
	return nil
}

func (c *Config) validateThresholds() error {
	t := c.Thresholds
	if t.MinSoilMoisture < 0 || t.MinSoilMoisture > 100 {
		return fmt.Errorf("MIN_SOIL_MOISTURE must be between 0 and 100")
	}
	if t.MinWaterLevel < 0 || t.MinEnergyLevel < 0 || t.MinFeedLevel < 0 || t.MinWaterPerAnimal < 0 {
		return fmt.Errorf("thresholds must not be negative")
	}
	if t.HighTemperature <= 0 {
		return fmt.Errorf("HIGH_TEMPERATURE must be greater than 0")
	}
	return nil
}

func (c *Config) validateSensors() error {
	if !validSensorModes[c.Sensors.Mode] {
		return fmt.Errorf("SENSORS_MODE must be one of: simulated, http")
	}
	if c.Sensors.Mode == "http" {
		u, err := url.Parse(c.Sensors.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("SENSORS_URL must be an absolute http(s) URL when SENSORS_MODE=http")
		}
		if c.Sensors.Timeout <= 0 {
			return fmt.Errorf("SENSORS_TIMEOUT must be positive")
		}
		if c.Sensors.RateLimit <= 0 {
			return fmt.Errorf("SENSORS_RATE_LIMIT must be positive")
		}
	}
	if c.Sensors.HerdSize < 0 {
		return fmt.Errorf("SENSORS_HERD_SIZE must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if !validSessionStores[s.SessionStore] {
		return fmt.Errorf("SESSION_STORE must be one of: memory, badger")
	}
	if s.SessionStore == "badger" && s.SessionStorePath == "" {
		return fmt.Errorf("SESSION_STORE_PATH is required for the badger session store")
	}
	if s.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1m")
	}
	if s.RateLimitReqs < 1 || s.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if (s.AdminUsername == "") != (s.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if s.AdminPassword != "" && len(s.AdminPassword) < minAdminPasswordLength {
		return fmt.Errorf("ADMIN_PASSWORD must be at least %d characters", minAdminPasswordLength)
	}
	for _, origin := range s.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("CORS_ORIGINS entry %q must be * or an http(s) origin", origin)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
