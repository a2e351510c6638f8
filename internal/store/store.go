// Package store holds the latest known state of every transmitting
// aircraft and answers range-and-freshness queries under concurrent
// read/write load. The key space is sharded so the single ingestion
// writer and an arbitrary number of query readers only contend on one
// shard at a time, and only for the duration of a map operation.
package store

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/unklstewy/ogn-scope/pkg/aprs"
	"github.com/unklstewy/ogn-scope/pkg/coordinates"
)

const (
	// DefaultShards is the number of independently locked partitions
	DefaultShards = 16

	// DefaultFreshnessWindow is the maximum report age for query results
	DefaultFreshnessWindow = 5 * time.Minute

	// DefaultMaxRadiusKm caps the radius a query may ask for
	DefaultMaxRadiusKm = 500.0
)

// InvalidQueryError reports query input outside the valid range. It is
// the only caller-visible error of the query path and is distinct from
// an empty result, which is a success.
type InvalidQueryError struct {
	// Field names the offending parameter
	Field string

	// Reason describes the constraint that was violated
	Reason string
}

// Error implements the error interface.
func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s %s", e.Field, e.Reason)
}

// Options configures a Store. Zero values fall back to the defaults.
type Options struct {
	// Shards is the number of lock partitions
	Shards int

	// FreshnessWindow is the maximum age of a report to be eligible in
	// query results. The boundary is inclusive: a report aged exactly
	// the window still matches.
	FreshnessWindow time.Duration

	// MaxRadiusKm is the largest radius a query may request
	MaxRadiusKm float64
}

// Result is one query match: the aircraft state and its great-circle
// distance from the query center.
type Result struct {
	Report     aprs.Report
	DistanceKm float64
}

type shard struct {
	mu      sync.RWMutex
	entries map[aprs.Address]aprs.Report
}

// Store is the concurrent latest-state map keyed by aircraft address.
// Entries are never evicted; staleness is evaluated at query time, so
// memory is bounded by the number of distinct aircraft, not by traffic.
type Store struct {
	opts   Options
	shards []*shard
}

// New creates a store with the given options.
func New(opts Options) *Store {
	if opts.Shards <= 0 {
		opts.Shards = DefaultShards
	}
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = DefaultFreshnessWindow
	}
	if opts.MaxRadiusKm <= 0 {
		opts.MaxRadiusKm = DefaultMaxRadiusKm
	}
	s := &Store{opts: opts, shards: make([]*shard, opts.Shards)}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[aprs.Address]aprs.Report)}
	}
	return s
}

// FreshnessWindow returns the configured maximum report age.
func (s *Store) FreshnessWindow() time.Duration {
	return s.opts.FreshnessWindow
}

// MaxRadiusKm returns the configured query radius cap.
func (s *Store) MaxRadiusKm() float64 {
	return s.opts.MaxRadiusKm
}

// shardFor hashes an address onto its partition.
func (s *Store) shardFor(addr aprs.Address) *shard {
	h := fnv.New32a()
	h.Write([]byte{byte(addr.Type)})
	h.Write([]byte(addr.ID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Upsert inserts or replaces the state for the report's aircraft and
// reports whether the write happened. A report older than the stored
// one never overwrites it; equal timestamps replace, so re-delivery of
// the newest report is idempotent. No-tracking reports are refused
// outright: what must never be shown is never persisted, no matter who
// calls. Safe under arbitrary concurrent callers.
func (s *Store) Upsert(rep *aprs.Report) bool {
	if rep == nil || !rep.Storable() {
		return false
	}
	sh := s.shardFor(rep.Address)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if existing, ok := sh.entries[rep.Address]; ok && rep.Time.Before(existing.Time) {
		return false
	}
	sh.entries[rep.Address] = *rep
	return true
}

// Query returns every publishable, fresh state within radiusKm of the
// center, annotated with its distance. Result order is unspecified.
// Zero matches is a success with an empty slice; only invalid input is
// an error (*InvalidQueryError).
//
// Each shard's read lock is held just long enough to copy the candidate
// entries out; distance filtering runs outside any lock. Readers see
// each entry atomically but not a global snapshot across entries, which
// is acceptable for live telemetry.
func (s *Store) Query(lat, lon, radiusKm float64, now time.Time) ([]Result, error) {
	if err := s.validate(lat, lon, radiusKm); err != nil {
		return nil, err
	}

	center := coordinates.Geographic{Latitude: lat, Longitude: lon}
	results := make([]Result, 0)
	for _, sh := range s.shards {
		for _, rep := range sh.snapshot(now, s.opts.FreshnessWindow) {
			d := coordinates.DistanceKm(center, coordinates.Geographic{
				Latitude:  rep.Latitude,
				Longitude: rep.Longitude,
			})
			if d <= radiusKm {
				results = append(results, Result{Report: rep, DistanceKm: d})
			}
		}
	}
	return results, nil
}

// snapshot copies the shard's publishable, fresh entries out under the
// read lock.
func (sh *shard) snapshot(now time.Time, window time.Duration) []aprs.Report {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	out := make([]aprs.Report, 0, len(sh.entries))
	for _, rep := range sh.entries {
		if !rep.Publishable() {
			continue
		}
		if now.Sub(rep.Time) > window {
			continue
		}
		out = append(out, rep)
	}
	return out
}

// Lookup fetches a single aircraft by device address, matching any
// address type. It honors the same privacy and freshness rules as
// Query: stealth and stale entries report as not found.
func (s *Store) Lookup(id string, now time.Time) (aprs.Report, bool) {
	id = strings.ToUpper(id)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for addr, rep := range sh.entries {
			if addr.ID == id && rep.Publishable() && now.Sub(rep.Time) <= s.opts.FreshnessWindow {
				sh.mu.RUnlock()
				return rep, true
			}
		}
		sh.mu.RUnlock()
	}
	return aprs.Report{}, false
}

// Len returns the total number of tracked identities, including stealth
// and stale entries that queries never surface.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// validate checks query input. A query with bad coordinates or radius
// is a caller error, never an empty result.
func (s *Store) validate(lat, lon, radiusKm float64) error {
	center := coordinates.Geographic{Latitude: lat, Longitude: lon}
	if !(center.Latitude >= -90 && center.Latitude <= 90) {
		return &InvalidQueryError{Field: "latitude", Reason: "must be within [-90, 90]"}
	}
	if !(center.Longitude >= -180 && center.Longitude <= 180) {
		return &InvalidQueryError{Field: "longitude", Reason: "must be within [-180, 180]"}
	}
	if !center.Valid() {
		return &InvalidQueryError{Field: "coordinates", Reason: "must be finite"}
	}
	if !(radiusKm > 0) {
		return &InvalidQueryError{Field: "radius", Reason: "must be positive"}
	}
	if radiusKm > s.opts.MaxRadiusKm {
		return &InvalidQueryError{Field: "radius", Reason: fmt.Sprintf("must not exceed %.0f km", s.opts.MaxRadiusKm)}
	}
	return nil
}
