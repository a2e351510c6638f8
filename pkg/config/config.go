// Package config loads the ogn-scope configuration: JSON file over
// compiled defaults, then OGN_SCOPE_* environment overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the complete application configuration.
type Config struct {
	APRS  APRSConfig  `json:"aprs"`
	API   APIConfig   `json:"api"`
	Store StoreConfig `json:"store"`
	Log   LogConfig   `json:"log"`
	Radar RadarConfig `json:"radar"`
}

// APRSConfig contains the relay session settings.
type APRSConfig struct {
	// Server is the "host:port" relay address
	Server string `json:"server"`

	// Callsign identifies the client in the login line
	Callsign string `json:"callsign"`

	// Passcode is the APRS-IS passcode; -1 requests a read-only session,
	// which is all the feed consumer needs
	Passcode int `json:"passcode"`

	// Filter is the server-side filter spec, e.g. "r/48.0/11.0/300"
	// for a radius filter. Empty subscribes to the full feed.
	Filter string `json:"filter"`

	// KeepAliveSeconds is how often a keep-alive comment is sent
	KeepAliveSeconds int `json:"keep_alive_seconds"`

	// ReadTimeoutSeconds is the silent-socket deadline
	ReadTimeoutSeconds int `json:"read_timeout_seconds"`
}

// APIConfig contains HTTP server configuration.
type APIConfig struct {
	// Host is the bind address (default: "0.0.0.0")
	Host string `json:"host"`

	// Port is the HTTP server port (default: "8080")
	Port string `json:"port"`

	// AllowedOrigins is the CORS whitelist; empty allows any origin
	AllowedOrigins []string `json:"allowed_origins"`

	// MaxRadiusKm caps the radius a query may request
	MaxRadiusKm float64 `json:"max_radius_km"`
}

// Addr returns the "host:port" bind address.
func (c APIConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// StoreConfig contains state store tuning.
type StoreConfig struct {
	// FreshnessSeconds is the maximum report age for query results
	FreshnessSeconds int `json:"freshness_seconds"`

	// Shards is the number of lock partitions
	Shards int `json:"shards"`
}

// LogConfig contains daemon logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level"`

	// Dir is the log directory; empty logs text to stderr instead of
	// JSON to a rotated file
	Dir string `json:"dir"`
}

// RadarConfig contains defaults for the terminal radar client.
type RadarConfig struct {
	// BaseURL is the daemon address the radar polls
	BaseURL string `json:"base_url"`

	// Latitude and Longitude are the scope center in decimal degrees
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// RadiusKm is the initial scope radius
	RadiusKm float64 `json:"radius_km"`

	// IntervalSeconds is the poll interval
	IntervalSeconds int `json:"interval_seconds"`
}

// Load reads configuration from a JSON file. If the file doesn't exist,
// returns the default configuration; malformed JSON is an error.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a JSON file, creating the directory
// if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns a configuration that works against the public
// OGN relay out of the box.
func DefaultConfig() *Config {
	return &Config{
		APRS: APRSConfig{
			Server:             "aprs.glidernet.org:14580",
			Callsign:           "OGNSCOPE",
			Passcode:           -1, // read-only session
			Filter:             "r/48.0/11.0/300",
			KeepAliveSeconds:   120,
			ReadTimeoutSeconds: 60,
		},
		API: APIConfig{
			Host:        "0.0.0.0",
			Port:        "8080",
			MaxRadiusKm: 500.0,
		},
		Store: StoreConfig{
			FreshnessSeconds: 300,
			Shards:           16,
		},
		Log: LogConfig{
			Level: "info",
		},
		Radar: RadarConfig{
			BaseURL:         "http://localhost:8080",
			Latitude:        48.0,
			Longitude:       11.0,
			RadiusKm:        100.0,
			IntervalSeconds: 2,
		},
	}
}

// validate rejects configurations the daemon cannot start with.
func (c *Config) validate() error {
	if c.APRS.Server == "" {
		return fmt.Errorf("aprs.server must not be empty")
	}
	if c.APRS.Callsign == "" {
		return fmt.Errorf("aprs.callsign must not be empty")
	}
	if c.Store.FreshnessSeconds <= 0 {
		return fmt.Errorf("store.freshness_seconds must be positive")
	}
	if c.API.MaxRadiusKm <= 0 {
		return fmt.Errorf("api.max_radius_km must be positive")
	}
	return nil
}

// applyEnvironmentOverrides applies OGN_SCOPE_* environment variables.
// This keeps credentials out of config files and eases containerized
// deployments.
func (c *Config) applyEnvironmentOverrides() {
	if server := os.Getenv("OGN_SCOPE_SERVER"); server != "" {
		c.APRS.Server = server
	}
	if callsign := os.Getenv("OGN_SCOPE_CALLSIGN"); callsign != "" {
		c.APRS.Callsign = callsign
	}
	if passcode := os.Getenv("OGN_SCOPE_PASSCODE"); passcode != "" {
		if v, err := strconv.Atoi(passcode); err == nil {
			c.APRS.Passcode = v
		}
	}
	if filter := os.Getenv("OGN_SCOPE_FILTER"); filter != "" {
		c.APRS.Filter = filter
	}
	if port := os.Getenv("OGN_SCOPE_PORT"); port != "" {
		c.API.Port = port
	}
	if freshness := os.Getenv("OGN_SCOPE_FRESHNESS_SECONDS"); freshness != "" {
		if v, err := strconv.Atoi(freshness); err == nil {
			c.Store.FreshnessSeconds = v
		}
	}
	if level := os.Getenv("OGN_SCOPE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if dir := os.Getenv("OGN_SCOPE_LOG_DIR"); dir != "" {
		c.Log.Dir = dir
	}
}
