// Package apiclient provides a client for the ogn-scope query API.
//
// The client is rate limited on the caller's side: the daemon is a
// shared resource, and polling front ends like the radar TUI should not
// be able to hammer it by accident.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds each request
	DefaultTimeout = 10 * time.Second

	// DefaultRequestsPerSecond is the client-side politeness limit
	DefaultRequestsPerSecond = 5.0
)

// APIError reports a non-2xx response from the daemon, with the message
// from the JSON error body when one was sent.
type APIError struct {
	// StatusCode is the HTTP status
	StatusCode int

	// Message is the server's error message, if any
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// IsNotFound reports whether the error is a 404 from the daemon.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Position is the decoded position shape.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AircraftView is one aircraft as served by the query API. Pointer
// fields are nil when the aircraft never reported the value.
type AircraftView struct {
	Address       string   `json:"address"`
	AddressType   string   `json:"address_type"`
	AircraftType  string   `json:"aircraft_type"`
	Position      Position `json:"position"`
	Altitude      *float64 `json:"altitude"`
	Speed         *float64 `json:"speed"`
	VerticalSpeed *float64 `json:"vertical_speed"`
	TurnRate      *float64 `json:"turn_rate"`
	Course        *float64 `json:"course"`
	Timestamp     int64    `json:"timestamp"`
	AgeSeconds    float64  `json:"age_seconds"`
	DistanceKm    *float64 `json:"distance_km"`
	Receiver      string   `json:"receiver"`
}

// Time returns the report timestamp.
func (v *AircraftView) Time() time.Time {
	return time.Unix(v.Timestamp, 0).UTC()
}

// Status is the daemon overview shape.
type Status struct {
	Version        string  `json:"version"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	TransportState string  `json:"transport_state"`
	Server         string  `json:"server"`
	TrackedCount   int     `json:"tracked_count"`
	Ingest         struct {
		Lines        uint64 `json:"lines"`
		Comments     uint64 `json:"comments"`
		StatusLines  uint64 `json:"status_lines"`
		Stored       uint64 `json:"stored"`
		Superseded   uint64 `json:"superseded"`
		NoTrackDrops uint64 `json:"no_track_drops"`
		DecodeErrors uint64 `json:"decode_errors"`
		Reconnects   uint64 `json:"reconnects"`
	} `json:"ingest"`
}

// Config configures the API client.
type Config struct {
	// BaseURL is the daemon address, e.g. "http://localhost:8080"
	BaseURL string

	// RequestsPerSecond is the client-side rate limit
	// (default: DefaultRequestsPerSecond)
	RequestsPerSecond float64

	// Timeout bounds each request (default: DefaultTimeout)
	Timeout time.Duration
}

// Client talks to an ogn-scope daemon.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates an API client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Near returns the aircraft within radiusKm of the center.
func (c *Client) Near(ctx context.Context, lat, lon, radiusKm float64) ([]AircraftView, error) {
	url := fmt.Sprintf("%s/api/v1/aircraft/near/%.6f/%.6f/%g", c.baseURL, lat, lon, radiusKm)

	var views []AircraftView
	if err := c.getJSON(ctx, url, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// ByAddress returns a single aircraft by device address. A 404 from the
// daemon surfaces as an *APIError recognizable via IsNotFound.
func (c *Client) ByAddress(ctx context.Context, address string) (*AircraftView, error) {
	url := fmt.Sprintf("%s/api/v1/aircraft/%s", c.baseURL, address)

	var view AircraftView
	if err := c.getJSON(ctx, url, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Status returns the daemon overview.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.getJSON(ctx, c.baseURL+"/api/v1/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// getJSON performs a rate-limited GET and decodes the response.
func (c *Client) getJSON(ctx context.Context, url string, v interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
