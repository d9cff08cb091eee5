// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package sensors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/eden/internal/config"
	"github.com/tomtom215/eden/internal/models"
)

// Gateway endpoints, relative to the configured base URL.
const (
	readingPath   = "/reading"
	livestockPath = "/livestock"
)

// maxErrorBodySize limits how much of a failed response is kept for the error.
const maxErrorBodySize = 4 * 1024

// HTTPSource polls a JSON sensor gateway. It implements both SensorSource
// and LivestockSource.
//
// GET {url}/reading returns one SensorReading object and GET {url}/livestock
// returns an array of LivestockEntry objects, both using the JSON field
// names of the models package.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[any]
}

var (
	_ SensorSource    = (*HTTPSource)(nil)
	_ LivestockSource = (*HTTPSource)(nil)
)

// NewHTTPSource builds a gateway client from cfg.
func NewHTTPSource(cfg *config.SensorsConfig) (*HTTPSource, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid sensor gateway url %q", cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &HTTPSource{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		cb:      newBreaker(breakerName, time.Minute),
	}, nil
}

// Read implements SensorSource.
func (s *HTTPSource) Read(ctx context.Context) (*models.SensorReading, error) {
	r, err := execute(s.cb, func() (*models.SensorReading, error) {
		var r models.SensorReading
		if err := s.get(ctx, readingPath, &r); err != nil {
			return nil, err
		}
		return &r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if err := validateReading(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Roster implements LivestockSource.
func (s *HTTPSource) Roster(ctx context.Context) ([]models.LivestockEntry, error) {
	roster, err := execute(s.cb, func() ([]models.LivestockEntry, error) {
		var roster []models.LivestockEntry
		if err := s.get(ctx, livestockPath, &roster); err != nil {
			return nil, err
		}
		return roster, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if err := validateRoster(roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// get fetches path and decodes the JSON body into out.
func (s *HTTPSource) get(ctx context.Context, path string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("GET %s failed with status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
