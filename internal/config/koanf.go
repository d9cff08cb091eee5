// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/eden/internal/models"
)

// DefaultConfigPaths are searched in order when EDEN_CONFIG is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/eden/config.yaml",
	"/etc/eden/config.yml",
}

// ConfigPathEnvVar points at an explicit config file.
const ConfigPathEnvVar = "EDEN_CONFIG"

func defaultConfig() *Config {
	th := models.DefaultThresholds()
	return &Config{
		Database: DatabaseConfig{
			Driver:       "sqlite",
			Path:         "./data/eden.db",
			Host:         "localhost",
			Port:         5432,
			Name:         "eden_db",
			User:         "eden_user",
			Password:     "",
			SSLMode:      "disable",
			MaxOpenConns: 10,
		},
		Control: ControlConfig{
			Interval:         5 * time.Minute,
			CycleTimeout:     30 * time.Second,
			TrendWindowHours: 24,
		},
		Thresholds: ThresholdsConfig{
			MinSoilMoisture:   th.MinSoilMoisture,
			MinWaterLevel:     th.MinWaterLevel,
			MinEnergyLevel:    th.MinEnergyLevel,
			MinFeedLevel:      th.MinFeedLevel,
			MinWaterPerAnimal: th.MinWaterPerAnimal,
			HighTemperature:   th.HighTemperature,
		},
		Sensors: SensorsConfig{
			Mode:      "simulated",
			URL:       "",
			Timeout:   10 * time.Second,
			RateLimit: 1,
			HerdSize:  5,
			Species:   "Chicken",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			SessionStore:     "memory",
			SessionStorePath: "./data/sessions",
			SessionTTL:       24 * time.Hour,
			CookieSecure:     false,
			RateLimitReqs:    20,
			RateLimitWindow:  time.Minute,
			CORSOrigins:      []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf merges defaults, the config file and the environment.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths accept comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf keys.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"db_driver":         "database.driver",
	"db_path":           "database.path",
	"db_host":           "database.host",
	"db_port":           "database.port",
	"db_name":           "database.name",
	"db_user":           "database.user",
	"db_password":       "database.password",
	"db_sslmode":        "database.sslmode",
	"db_max_open_conns": "database.max_open_conns",

	"control_interval":           "control.interval",
	"control_cycle_timeout":      "control.cycle_timeout",
	"control_trend_window_hours": "control.trend_window_hours",

	"min_soil_moisture":    "thresholds.min_soil_moisture",
	"min_water_level":      "thresholds.min_water_level",
	"min_energy_level":     "thresholds.min_energy_level",
	"min_feed_level":       "thresholds.min_feed_level",
	"min_water_per_animal": "thresholds.min_water_per_animal",
	"high_temperature":     "thresholds.high_temperature",

	"sensors_mode":       "sensors.mode",
	"sensors_url":        "sensors.url",
	"sensors_timeout":    "sensors.timeout",
	"sensors_rate_limit": "sensors.rate_limit",
	"sensors_herd_size":  "sensors.herd_size",
	"sensors_species":    "sensors.species",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"session_store":       "security.session_store",
	"session_store_path":  "security.session_path",
	"session_ttl":         "security.session_ttl",
	"cookie_secure":       "security.cookie_secure",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"cors_origins":        "security.cors_origins",
	"admin_username":      "security.admin_username",
	"admin_password":      "security.admin_password",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
