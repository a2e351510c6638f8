package aprs

import "time"

// BackoffConfig configures reconnect delays for a consumer of Client.Run.
type BackoffConfig struct {
	// InitialDelay is the delay after the first failure (default: 1 second)
	InitialDelay time.Duration

	// MaxDelay caps the exponential growth (default: 60 seconds)
	MaxDelay time.Duration

	// Multiplier is the growth factor between failures (default: 2.0)
	Multiplier float64

	// SustainedConnection is how long a session must stay up for the
	// next failure to start over at InitialDelay (default: 60 seconds).
	// A connection that drops immediately keeps climbing instead.
	SustainedConnection time.Duration
}

// DefaultBackoffConfig returns sensible defaults for reconnect behavior.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay:        time.Second,
		MaxDelay:            60 * time.Second,
		Multiplier:          2.0,
		SustainedConnection: 60 * time.Second,
	}
}

// Backoff tracks the reconnect delay across connection attempts.
// It is used from a single goroutine and needs no locking.
type Backoff struct {
	cfg  BackoffConfig
	next time.Duration
}

// NewBackoff creates a backoff tracker. Zero config fields fall back to
// the defaults.
func NewBackoff(cfg BackoffConfig) *Backoff {
	def := DefaultBackoffConfig()
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.SustainedConnection <= 0 {
		cfg.SustainedConnection = def.SustainedConnection
	}
	return &Backoff{cfg: cfg, next: cfg.InitialDelay}
}

// Next returns the delay to wait before the upcoming attempt and advances
// the schedule for the one after it.
func (b *Backoff) Next() time.Duration {
	d := b.next
	grown := time.Duration(float64(b.next) * b.cfg.Multiplier)
	if grown > b.cfg.MaxDelay {
		grown = b.cfg.MaxDelay
	}
	b.next = grown
	return d
}

// Connected informs the tracker how long the last session stayed up.
// A sustained connection resets the schedule to the initial delay.
func (b *Backoff) Connected(uptime time.Duration) {
	if uptime >= b.cfg.SustainedConnection {
		b.next = b.cfg.InitialDelay
	}
}
