// Package nominatim implements the outbound geocoder client against a
// Nominatim-compatible search endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/refdesk/refrank/internal/domain"
	"github.com/refdesk/refrank/internal/domain/geo"
	"github.com/refdesk/refrank/internal/metrics"
)

// cityLevelTypes are addresstype values that indicate a match coarser than
// street level; resolutions of these types are reported low-confidence.
var cityLevelTypes = map[string]struct{}{
	"city":           {},
	"town":           {},
	"village":        {},
	"hamlet":         {},
	"suburb":         {},
	"postcode":       {},
	"county":         {},
	"state":          {},
	"country":        {},
	"administrative": {},
}

// Client is a geocoding provider using the Nominatim search API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *zap.Logger
}

// Config holds the geocoding provider settings.
type Config struct {
	BaseURL   string
	UserAgent string // required by the Nominatim usage policy
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewClient creates a Nominatim geocoder client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// searchResult is one entry of a Nominatim jsonv2 response. Lat/lon arrive
// as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	AddressType string `json:"addresstype"`
}

// Resolve geocodes a free-form address query with transport-level metrics.
// A definitive empty response maps to domain.ErrLocationNotFound; transport
// failures and 429/5xx map to domain.ErrResolutionUnavailable so the caller
// can retry.
func (c *Client) Resolve(ctx context.Context, query string) (geo.Resolution, error) {
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, url.Values{
		"q":      []string{query},
		"format": []string{"jsonv2"},
		"limit":  []string{"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return geo.Resolution{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return geo.Resolution{}, fmt.Errorf("geocode request failed: %w", domain.ErrResolutionUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Geocoder returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return geo.Resolution{}, fmt.Errorf("geocoder HTTP %d: %w", resp.StatusCode, domain.ErrResolutionUnavailable)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return geo.Resolution{}, fmt.Errorf("decode geocode response: %w", domain.ErrResolutionUnavailable)
	}

	if len(results) == 0 {
		// Definitive answer: the address does not geocode. Not retried.
		metrics.GeocodeRequestsTotal.WithLabelValues("not_found").Inc()
		return geo.Resolution{}, fmt.Errorf("no geocoder match for %q: %w", query, domain.ErrLocationNotFound)
	}

	res, err := toResolution(results[0])
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return geo.Resolution{}, err
	}

	metrics.GeocodeRequestsTotal.WithLabelValues("success").Inc()
	metrics.GeocodeRequestDuration.Observe(duration.Seconds())

	return res, nil
}

// HealthCheck verifies API availability via the status endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", http.NoBody)
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geocoder status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder status HTTP %d", resp.StatusCode)
	}
	return nil
}

func toResolution(r searchResult) (geo.Resolution, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return geo.Resolution{}, fmt.Errorf("parse geocoder latitude %q: %w", r.Lat, domain.ErrResolutionUnavailable)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return geo.Resolution{}, fmt.Errorf("parse geocoder longitude %q: %w", r.Lon, domain.ErrResolutionUnavailable)
	}

	coord, err := geo.NewCoordinate(lat, lon)
	if err != nil {
		return geo.Resolution{}, fmt.Errorf("geocoder coordinate out of range: %w", domain.ErrResolutionUnavailable)
	}

	confidence := geo.ConfidenceHigh
	if _, ok := cityLevelTypes[r.AddressType]; ok {
		confidence = geo.ConfidenceLow
	}

	return geo.NewResolution(coord, confidence, r.DisplayName), nil
}
