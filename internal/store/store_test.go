package store

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/unklstewy/ogn-scope/pkg/aprs"
)

// now is the fixed reference clock for freshness tests.
var now = time.Date(2023, 6, 29, 12, 0, 0, 0, time.UTC)

// report builds a fresh publishable report at the given position.
func report(id string, lat, lon float64, t time.Time) *aprs.Report {
	return &aprs.Report{
		Address:   aprs.Address{ID: id, Type: aprs.AddressFlarm},
		Latitude:  lat,
		Longitude: lon,
		Time:      t,
	}
}

// TestUpsertLatestWins tests that only monotonically newer timestamps
// replace stored state.
func TestUpsertLatestWins(t *testing.T) {
	s := New(Options{})

	newer := report("DDE626", 48.0, 11.0, now)
	older := report("DDE626", 49.0, 12.0, now.Add(-50*time.Second))

	if !s.Upsert(newer) {
		t.Fatal("Expected first upsert to succeed")
	}
	if s.Upsert(older) {
		t.Error("Expected older report to be rejected")
	}

	got, ok := s.Lookup("DDE626", now)
	if !ok {
		t.Fatal("Expected aircraft to be stored")
	}
	if got.Latitude != 48.0 {
		t.Errorf("Expected newer state to survive, got latitude %v", got.Latitude)
	}
}

// TestUpsertEqualTimestamp tests that re-delivery of the newest report
// is idempotent rather than silently ignored.
func TestUpsertEqualTimestamp(t *testing.T) {
	s := New(Options{})

	s.Upsert(report("DDE626", 48.0, 11.0, now))
	redelivered := report("DDE626", 48.5, 11.5, now)
	if !s.Upsert(redelivered) {
		t.Error("Expected equal-timestamp upsert to replace")
	}

	got, _ := s.Lookup("DDE626", now)
	if got.Latitude != 48.5 {
		t.Errorf("Expected redelivered state, got latitude %v", got.Latitude)
	}
}

// TestUpsertNoTrack tests that no-tracking reports are never written,
// regardless of caller.
func TestUpsertNoTrack(t *testing.T) {
	s := New(Options{})

	rep := report("DDE626", 48.0, 11.0, now)
	rep.NoTrack = true
	if s.Upsert(rep) {
		t.Error("Expected no-tracking report to be refused")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d entries", s.Len())
	}

	results, err := s.Query(48.0, 11.0, 100, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}

// TestQueryStealthExcluded tests that stealth aircraft are stored but
// never appear in query output.
func TestQueryStealthExcluded(t *testing.T) {
	s := New(Options{})

	rep := report("DDE626", 48.0, 11.0, now)
	rep.Stealth = true
	if !s.Upsert(rep) {
		t.Fatal("Expected stealth report to be stored")
	}
	if s.Len() != 1 {
		t.Fatalf("Expected 1 entry, got %d", s.Len())
	}

	results, err := s.Query(48.0, 11.0, 100, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(results) != 0 {
		t.Error("Expected stealth aircraft to be invisible to queries")
	}

	if _, ok := s.Lookup("DDE626", now); ok {
		t.Error("Expected stealth aircraft to be invisible to lookups")
	}
}

// TestQueryFreshnessBoundary tests the inclusive 5-minute window: a
// report aged exactly the window matches, one second older does not.
func TestQueryFreshnessBoundary(t *testing.T) {
	s := New(Options{})

	s.Upsert(report("ATEDGE", 48.0, 11.0, now.Add(-5*time.Minute)))
	s.Upsert(report("TOOOLD", 48.0, 11.1, now.Add(-5*time.Minute-time.Second)))

	results, err := s.Query(48.0, 11.0, 100, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected exactly 1 result, got %d", len(results))
	}
	if results[0].Report.Address.ID != "ATEDGE" {
		t.Errorf("Expected the boundary aircraft, got %s", results[0].Report.Address.ID)
	}
}

// TestQueryRange tests the end-to-end filter: A fresh and in range,
// B fresh but out of range, C in range but stale.
func TestQueryRange(t *testing.T) {
	s := New(Options{})

	s.Upsert(report("AAAAAA", 48.1, 11.1, now))                     // fresh, ~13 km out
	s.Upsert(report("BBBBBB", 50.0, 15.0, now))                     // fresh, ~360 km out
	s.Upsert(report("CCCCCC", 48.0, 11.0, now.Add(-10*time.Minute))) // stale, at center

	results, err := s.Query(48.0, 11.0, 50, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected exactly {A}, got %d results", len(results))
	}
	if results[0].Report.Address.ID != "AAAAAA" {
		t.Errorf("Expected AAAAAA, got %s", results[0].Report.Address.ID)
	}
	if results[0].DistanceKm <= 0 || results[0].DistanceKm > 50 {
		t.Errorf("Expected annotated distance within range, got %v", results[0].DistanceKm)
	}
}

// TestQueryAntimeridian tests that two points straddling the ±180° line
// are ~22 km apart, not ~22,000.
func TestQueryAntimeridian(t *testing.T) {
	s := New(Options{})
	s.Upsert(report("DDE626", 0, 179.9, now))

	results, err := s.Query(0, -179.9, 30, now)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(results) != 1 {
		t.Fatal("Expected aircraft across the antimeridian to be in range")
	}
	if math.Abs(results[0].DistanceKm-22.26) > 0.5 {
		t.Errorf("Expected ~22 km wrap distance, got %.1f km", results[0].DistanceKm)
	}
}

// TestQueryValidation tests that invalid input is a distinct error and
// that zero matches is a success.
func TestQueryValidation(t *testing.T) {
	s := New(Options{})

	tests := []struct {
		name     string
		lat, lon float64
		radius   float64
	}{
		{"Latitude too high", 91, 0, 10},
		{"Latitude too low", -91, 0, 10},
		{"Longitude too high", 0, 181, 10},
		{"Longitude too low", 0, -181, 10},
		{"Latitude NaN", math.NaN(), 0, 10},
		{"Zero radius", 0, 0, 0},
		{"Negative radius", 0, 0, -5},
		{"Radius over cap", 0, 0, 501},
		{"Radius NaN", 0, 0, math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Query(tt.lat, tt.lon, tt.radius, now)
			var qErr *InvalidQueryError
			if !errors.As(err, &qErr) {
				t.Fatalf("Expected InvalidQueryError, got: %v", err)
			}
		})
	}

	t.Run("Empty result is success", func(t *testing.T) {
		results, err := s.Query(0, 0, 100, now)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if results == nil || len(results) != 0 {
			t.Errorf("Expected empty non-nil result, got %v", results)
		}
	})
}

// TestLookup tests single-aircraft fetch semantics.
func TestLookup(t *testing.T) {
	s := New(Options{})
	s.Upsert(report("DDE626", 48.0, 11.0, now))

	t.Run("Found case-insensitively", func(t *testing.T) {
		if _, ok := s.Lookup("dde626", now); !ok {
			t.Error("Expected lower-case lookup to find the aircraft")
		}
	})

	t.Run("Unknown address", func(t *testing.T) {
		if _, ok := s.Lookup("ABCDEF", now); ok {
			t.Error("Expected unknown address to be not found")
		}
	})

	t.Run("Stale entry", func(t *testing.T) {
		if _, ok := s.Lookup("DDE626", now.Add(10*time.Minute)); ok {
			t.Error("Expected stale entry to be not found")
		}
	})
}

// TestConcurrentAccess tests the store under one writer and many readers,
// the production access pattern, with the race detector in mind.
func TestConcurrentAccess(t *testing.T) {
	s := New(Options{})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			id := fmt.Sprintf("DD%04d", i%100)
			s.Upsert(report(id, 48.0+float64(i%10)*0.01, 11.0, now.Add(time.Duration(i)*time.Millisecond)))
		}
	}()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if _, err := s.Query(48.0, 11.0, 100, now); err != nil {
					t.Errorf("Unexpected query error: %v", err)
					return
				}
				s.Len()
			}
		}()
	}

	// Let the readers finish, then stop the writer.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	close(stop)
	<-done
}
