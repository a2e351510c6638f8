// Package ingest drives the transport → decoder → store pipeline. One
// goroutine owns the APRS client and performs every store write; all
// data errors are absorbed here and surfaced only through counters.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/ogn-scope/internal/store"
	"github.com/unklstewy/ogn-scope/pkg/aprs"
)

// Counters is a snapshot of the ingestion statistics for the status API.
type Counters struct {
	// Lines is the total number of raw lines received
	Lines uint64 `json:"lines"`

	// Comments is the number of server comment lines
	Comments uint64 `json:"comments"`

	// StatusLines is the number of receiver/infrastructure lines
	StatusLines uint64 `json:"status_lines"`

	// Stored is the number of reports written to the store
	Stored uint64 `json:"stored"`

	// Superseded is the number of reports dropped for being older than
	// the stored state of the same aircraft
	Superseded uint64 `json:"superseded"`

	// NoTrackDrops is the number of no-tracking reports deliberately
	// dropped before the store
	NoTrackDrops uint64 `json:"no_track_drops"`

	// DecodeErrors is the number of malformed lines skipped
	DecodeErrors uint64 `json:"decode_errors"`

	// Reconnects is the number of reconnection attempts after a
	// terminal stream error
	Reconnects uint64 `json:"reconnects"`
}

// Ingestor runs the ingestion loop. It never terminates on data errors;
// only context cancellation stops it.
type Ingestor struct {
	client  *aprs.Client
	store   *store.Store
	log     *slog.Logger
	backoff *aprs.Backoff

	// errLimiter throttles decode-error logging so a corrupt feed
	// cannot flood the log
	errLimiter *rate.Limiter

	lines        atomic.Uint64
	comments     atomic.Uint64
	statusLines  atomic.Uint64
	stored       atomic.Uint64
	superseded   atomic.Uint64
	noTrackDrops atomic.Uint64
	decodeErrors atomic.Uint64
	reconnects   atomic.Uint64
}

// New creates an ingestor wiring the given transport to the given store.
func New(client *aprs.Client, st *store.Store, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		client:     client,
		store:      st,
		log:        logger,
		backoff:    aprs.NewBackoff(aprs.DefaultBackoffConfig()),
		errLimiter: rate.NewLimiter(rate.Every(10*time.Second), 5),
	}
}

// TransportState returns the connection state for the status API.
func (in *Ingestor) TransportState() string {
	return in.client.State().String()
}

// ServerAddr returns the configured relay address.
func (in *Ingestor) ServerAddr() string {
	return in.client.Server()
}

// Counters returns a consistent-enough snapshot of the statistics.
func (in *Ingestor) Counters() Counters {
	return Counters{
		Lines:        in.lines.Load(),
		Comments:     in.comments.Load(),
		StatusLines:  in.statusLines.Load(),
		Stored:       in.stored.Load(),
		Superseded:   in.superseded.Load(),
		NoTrackDrops: in.noTrackDrops.Load(),
		DecodeErrors: in.decodeErrors.Load(),
		Reconnects:   in.reconnects.Load(),
	}
}

// Run is the sustained background activity of the process: it keeps a
// session alive, reconnecting with exponential backoff on any terminal
// stream error, until the context is cancelled. The store survives
// reconnects untouched, so prior aircraft remain queryable through an
// outage, subject to the freshness rule.
func (in *Ingestor) Run(ctx context.Context) {
	for {
		in.log.Info("connecting to relay", "server", in.client.Server())
		started := time.Now()
		err := in.client.Run(ctx, in.handleLine)
		in.backoff.Connected(time.Since(started))

		if ctx.Err() != nil {
			in.log.Info("ingestion stopped", "reason", ctx.Err())
			return
		}

		delay := in.backoff.Next()
		in.reconnects.Add(1)
		var connErr *aprs.ConnectionError
		switch {
		case errors.Is(err, aprs.ErrStreamEnded):
			in.log.Warn("stream ended, reconnecting", "delay", delay)
		case errors.As(err, &connErr):
			in.log.Warn("connection failed, reconnecting", "op", connErr.Op, "error", connErr.Err, "delay", delay)
		default:
			in.log.Warn("transport error, reconnecting", "error", err, "delay", delay)
		}

		in.client.SetBackoff()
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// handleLine decodes one raw line and updates the store. Malformed lines
// are counted and skipped, never fatal.
func (in *Ingestor) handleLine(line string) {
	in.lines.Add(1)

	msg, err := aprs.ParseLine(line)
	if err != nil {
		in.decodeErrors.Add(1)
		if de, ok := aprs.IsDecodeError(err); ok && in.errLimiter.Allow() {
			in.log.Debug("skipping malformed line", "reason", de.Reason, "line", de.Line)
		}
		return
	}

	switch msg.Kind {
	case aprs.KindComment:
		in.comments.Add(1)
	case aprs.KindStatus:
		in.statusLines.Add(1)
	case aprs.KindReport:
		in.handleReport(msg.Report)
	}
}

func (in *Ingestor) handleReport(rep *aprs.Report) {
	if !rep.Storable() {
		// The conservative privacy choice: what must never be shown is
		// never persisted.
		in.noTrackDrops.Add(1)
		return
	}
	if in.store.Upsert(rep) {
		in.stored.Add(1)
	} else {
		in.superseded.Add(1)
	}
}
