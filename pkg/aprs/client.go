package aprs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultServer is the public OGN relay endpoint with filter support
	DefaultServer = "aprs.glidernet.org:14580"

	// DefaultDialTimeout bounds the TCP connect and login write
	DefaultDialTimeout = 10 * time.Second

	// DefaultKeepAliveInterval is how often the client proves it is alive.
	// APRS-IS servers drop sessions that stay silent; the interval must be
	// comfortably shorter than the server's idle timeout.
	DefaultKeepAliveInterval = 2 * time.Minute

	// DefaultReadTimeout is the longest the socket may stay silent before
	// the connection is considered dead. Servers emit comment lines every
	// ~20 seconds, so a silent socket means a broken path, not a quiet feed.
	DefaultReadTimeout = time.Minute

	// softwareName and softwareVersion identify this client in the login line
	softwareName    = "ogn-scope"
	softwareVersion = "1.0"
)

// ErrStreamEnded signals that the server closed the connection cleanly.
// The consumer recovers by reconnecting with backoff.
var ErrStreamEnded = errors.New("aprs: stream ended")

// ConnectionError reports a socket-level failure while dialing, logging in
// or reading. It is recoverable by reconnecting with backoff.
type ConnectionError struct {
	// Op is the phase that failed: "dial", "login" or "read"
	Op string

	// Addr is the server address
	Addr string

	// Err is the underlying error
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("aprs %s %s: %v", e.Op, e.Addr, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// State is the connection state of a Client, readable concurrently.
type State int32

const (
	// StateDisconnected means no session exists and none is being set up
	StateDisconnected State = iota

	// StateConnecting means the client is dialing or logging in
	StateConnecting

	// StateConnected means the login succeeded and lines are flowing
	StateConnected

	// StateBackoff means the consumer is waiting out a reconnect delay
	StateBackoff
)

// String returns the lower-case state name for logs and the status API.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	default:
		return "disconnected"
	}
}

// ClientConfig configures an APRS-IS session.
type ClientConfig struct {
	// Server is the "host:port" relay address (default: DefaultServer)
	Server string

	// Callsign identifies the client in the login line
	Callsign string

	// Passcode is the APRS-IS login passcode. -1 requests a read-only
	// session, which is all this client needs.
	Passcode int

	// Filter is the optional server-side filter spec, e.g. "r/48.0/11.0/200"
	Filter string

	// KeepAliveInterval is how often a keep-alive comment is sent
	// (default: DefaultKeepAliveInterval)
	KeepAliveInterval time.Duration

	// ReadTimeout is the silent-socket deadline (default: DefaultReadTimeout)
	ReadTimeout time.Duration

	// DialTimeout bounds the TCP connect (default: DefaultDialTimeout)
	DialTimeout time.Duration
}

// Client maintains one logical session to an APRS-IS server: it dials,
// logs in, keeps the session alive and delivers raw lines to a consumer.
// Reconnection policy belongs to the consumer, which recreates the run
// with backoff on any terminal error.
type Client struct {
	cfg ClientConfig

	mu    sync.Mutex
	state State
}

// NewClient creates a client for the given session configuration.
// Zero durations and an empty server address fall back to the defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	return &Client{cfg: cfg}
}

// Server returns the configured relay address.
func (c *Client) Server() string {
	return c.cfg.Server
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetBackoff marks the client as waiting out a reconnect delay. The
// consumer owns the backoff timer; the client only reports the state.
func (c *Client) SetBackoff() {
	c.setState(StateBackoff)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// loginLine builds the APRS-IS login sentence.
func (c *Client) loginLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "user %s pass %d vers %s %s", c.cfg.Callsign, c.cfg.Passcode, softwareName, softwareVersion)
	if c.cfg.Filter != "" {
		fmt.Fprintf(&b, " filter %s", c.cfg.Filter)
	}
	return b.String()
}

// Run connects, logs in and delivers every received line (terminator
// stripped) to fn until the stream ends. It blocks for the lifetime of
// the session and always returns a non-nil error:
//
//   - ErrStreamEnded when the server closed the connection cleanly
//   - *ConnectionError on dial, login or read failure
//   - ctx.Err() when the context was cancelled
//
// The keep-alive timer runs for the whole session and is stopped before
// Run returns. fn is called from a single goroutine.
func (c *Client) Run(ctx context.Context, fn func(line string)) error {
	c.setState(StateConnecting)

	conn, err := net.DialTimeout("tcp", c.cfg.Server, c.cfg.DialTimeout)
	if err != nil {
		c.setState(StateDisconnected)
		return &ConnectionError{Op: "dial", Addr: c.cfg.Server, Err: err}
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.DialTimeout))
	if _, err := fmt.Fprintf(conn, "%s\r\n", c.loginLine()); err != nil {
		c.setState(StateDisconnected)
		return &ConnectionError{Op: "login", Addr: c.cfg.Server, Err: err}
	}
	conn.SetWriteDeadline(time.Time{})

	c.setState(StateConnected)
	defer c.setState(StateDisconnected)

	// Close the socket on cancellation so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go c.keepAlive(done, conn)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)
	for {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		if !scanner.Scan() {
			break
		}
		fn(scanner.Text())
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return &ConnectionError{Op: "read", Addr: c.cfg.Server, Err: err}
	}
	return ErrStreamEnded
}

// keepAlive writes a comment line on a fixed interval until the session
// ends. Comments prove liveness to the server even when a narrow filter
// keeps the feed quiet. A write failure is left for the read loop to
// notice; the socket is broken either way.
func (c *Client) keepAlive(done <-chan struct{}, conn net.Conn) {
	ticker := time.NewTicker(c.cfg.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.DialTimeout))
			if _, err := fmt.Fprintf(conn, "# %s keepalive\r\n", softwareName); err != nil {
				return
			}
		}
	}
}
