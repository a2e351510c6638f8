package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unklstewy/ogn-scope/internal/store"
	"github.com/unklstewy/ogn-scope/pkg/aprs"
)

func floatPtr(v float64) *float64 { return &v }

// newTestServer builds an API server over a pre-populated store.
func newTestServer(t *testing.T, populate func(*store.Store)) *httptest.Server {
	t.Helper()

	st := store.New(store.Options{})
	if populate != nil {
		populate(st)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(st, nil, logger, Config{Version: "test"})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// freshReport builds a publishable report near Munich, a minute old.
func freshReport(id string, lat, lon float64) *aprs.Report {
	return &aprs.Report{
		Address:      aprs.Address{ID: id, Type: aprs.AddressFlarm},
		AircraftType: aprs.AircraftGlider,
		Latitude:     lat,
		Longitude:    lon,
		AltitudeM:    floatPtr(612.0),
		SpeedKmh:     floatPtr(12.964),
		CourseDeg:    floatPtr(86),
		ClimbMps:     floatPtr(1.2),
		Receiver:     "EGHL",
		Time:         time.Now().UTC().Add(-time.Minute),
	}
}

// getJSON fetches a URL and decodes the response body.
func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// TestHandleNear tests the range query endpoint.
func TestHandleNear(t *testing.T) {
	ts := newTestServer(t, func(st *store.Store) {
		st.Upsert(freshReport("DDE626", 48.36, 11.78))
		st.Upsert(freshReport("FAAWAY", 50.0, 15.0))
	})

	t.Run("Matching aircraft", func(t *testing.T) {
		var views []AircraftStateView
		status := getJSON(t, ts.URL+"/api/v1/aircraft/near/48.36/11.78/50", &views)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(views) != 1 {
			t.Fatalf("Expected 1 aircraft, got %d", len(views))
		}

		v := views[0]
		if v.Address != "DDE626" {
			t.Errorf("Expected DDE626, got %s", v.Address)
		}
		if v.AddressType != "flarm" {
			t.Errorf("Expected flarm address type, got %s", v.AddressType)
		}
		if v.AircraftType != "glider" {
			t.Errorf("Expected glider, got %s", v.AircraftType)
		}
		if v.Altitude == nil || *v.Altitude != 612.0 {
			t.Errorf("Expected altitude 612, got %v", v.Altitude)
		}
		if v.VerticalSpeed == nil || *v.VerticalSpeed != 1.2 {
			t.Errorf("Expected vertical speed 1.2, got %v", v.VerticalSpeed)
		}
		if v.DistanceKm == nil {
			t.Error("Expected distance annotation on range queries")
		}
		if v.AgeSeconds < 55 || v.AgeSeconds > 120 {
			t.Errorf("Expected age around 60s, got %v", v.AgeSeconds)
		}
		if v.Receiver != "EGHL" {
			t.Errorf("Expected receiver EGHL, got %s", v.Receiver)
		}
	})

	t.Run("Empty result is 200 with empty array", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/aircraft/near/0.0/0.0/50")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if strings.TrimSpace(string(body)) != "[]" {
			t.Errorf("Expected empty JSON array, got %s", body)
		}
	})

	t.Run("Invalid latitude is 400", func(t *testing.T) {
		var errResp map[string]string
		status := getJSON(t, ts.URL+"/api/v1/aircraft/near/91.0/11.78/50", &errResp)
		if status != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", status)
		}
		if errResp["error"] == "" {
			t.Error("Expected an error message in the body")
		}
	})

	t.Run("Non-numeric radius is 400", func(t *testing.T) {
		status := getJSON(t, ts.URL+"/api/v1/aircraft/near/48.36/11.78/lots", nil)
		if status != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", status)
		}
	})
}

// TestHandleNearAbsentFields tests that never-reported numerics come
// back as JSON null, not zero.
func TestHandleNearAbsentFields(t *testing.T) {
	ts := newTestServer(t, func(st *store.Store) {
		rep := freshReport("DDE626", 48.36, 11.78)
		rep.AltitudeM = nil
		rep.ClimbMps = nil
		rep.TurnRate = nil
		st.Upsert(rep)
	})

	resp, err := http.Get(ts.URL + "/api/v1/aircraft/near/48.36/11.78/50")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("Expected 1 aircraft, got %d", len(raw))
	}
	for _, field := range []string{"altitude", "vertical_speed", "turn_rate"} {
		if string(raw[0][field]) != "null" {
			t.Errorf("Expected %s to be null, got %s", field, raw[0][field])
		}
	}
}

// TestHandleNearStealth tests that stealth aircraft are never serialized.
func TestHandleNearStealth(t *testing.T) {
	ts := newTestServer(t, func(st *store.Store) {
		rep := freshReport("SECRET", 48.36, 11.78)
		rep.Stealth = true
		st.Upsert(rep)
	})

	var views []AircraftStateView
	status := getJSON(t, ts.URL+"/api/v1/aircraft/near/48.36/11.78/50", &views)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(views) != 0 {
		t.Error("Expected stealth aircraft to never appear in responses")
	}
}

// TestHandleLookup tests the single-aircraft endpoint.
func TestHandleLookup(t *testing.T) {
	ts := newTestServer(t, func(st *store.Store) {
		st.Upsert(freshReport("DDE626", 48.36, 11.78))
	})

	t.Run("Known aircraft", func(t *testing.T) {
		var view AircraftStateView
		status := getJSON(t, ts.URL+"/api/v1/aircraft/DDE626", &view)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if view.Address != "DDE626" {
			t.Errorf("Expected DDE626, got %s", view.Address)
		}
		if view.DistanceKm != nil {
			t.Error("Expected no distance annotation without a query center")
		}
	})

	t.Run("Unknown aircraft", func(t *testing.T) {
		status := getJSON(t, ts.URL+"/api/v1/aircraft/ABCDEF", nil)
		if status != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", status)
		}
	})
}

// TestHandleStatus tests the overview endpoint shape.
func TestHandleStatus(t *testing.T) {
	ts := newTestServer(t, func(st *store.Store) {
		st.Upsert(freshReport("DDE626", 48.36, 11.78))
	})

	var status statusResponse
	code := getJSON(t, ts.URL+"/api/v1/status", &status)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if status.Version != "test" {
		t.Errorf("Expected version test, got %s", status.Version)
	}
	if status.TrackedCount != 1 {
		t.Errorf("Expected 1 tracked aircraft, got %d", status.TrackedCount)
	}
	if status.UptimeSeconds < 0 {
		t.Errorf("Expected non-negative uptime, got %v", status.UptimeSeconds)
	}
}

// TestHandleHealth tests the liveness probe.
func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	var resp map[string]string
	status := getJSON(t, ts.URL+"/health", &resp)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", resp["status"])
	}
}

// TestLiveStream tests the websocket endpoint: frames arrive on the
// configured interval with the REST view shape, and bad input is
// rejected before the upgrade.
func TestLiveStream(t *testing.T) {
	ts := newTestServer(t, func(st *store.Store) {
		st.Upsert(freshReport("DDE626", 48.36, 11.78))
	})
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	t.Run("Frames delivered", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(
			wsURL+"/api/v1/aircraft/ws?lat=48.36&lon=11.78&radius=50&interval=1", nil)
		if err != nil {
			t.Fatalf("Failed to dial websocket: %v", err)
		}
		defer conn.Close()

		for i := 0; i < 2; i++ {
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			var views []AircraftStateView
			if err := conn.ReadJSON(&views); err != nil {
				t.Fatalf("Failed to read frame %d: %v", i, err)
			}
			if len(views) != 1 || views[0].Address != "DDE626" {
				t.Errorf("Frame %d: expected [DDE626], got %v", i, views)
			}
		}
	})

	t.Run("Invalid input rejected before upgrade", func(t *testing.T) {
		status := getJSON(t, ts.URL+"/api/v1/aircraft/ws?lat=91&lon=0&radius=50", nil)
		if status != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", status)
		}
	})

	t.Run("Missing parameters rejected", func(t *testing.T) {
		status := getJSON(t, ts.URL+"/api/v1/aircraft/ws", nil)
		if status != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", status)
		}
	})
}
