package coordinates

import (
	"math"
	"testing"
)

// TestDistanceKm tests great-circle distance calculation.
func TestDistanceKm(t *testing.T) {
	t.Run("Zero distance for identical points", func(t *testing.T) {
		p := Geographic{Latitude: 48.858222, Longitude: 2.2945}
		d := DistanceKm(p, p)
		if d != 0 {
			t.Errorf("Expected 0 km, got %f", d)
		}
	})

	t.Run("Short distance within a city", func(t *testing.T) {
		// Eiffel Tower to the Louvre, roughly 3.17 km
		from := Geographic{Latitude: 48.858222, Longitude: 2.2945}
		to := Geographic{Latitude: 48.860550, Longitude: 2.337600}
		d := DistanceKm(from, to)
		if math.Abs(d-3.17) > 0.05 {
			t.Errorf("Expected ~3.17 km, got %f", d)
		}
	})

	t.Run("Antimeridian crossing stays short", func(t *testing.T) {
		// 0.2 degrees of longitude apart across the ±180° line
		from := Geographic{Latitude: 0, Longitude: 179.9}
		to := Geographic{Latitude: 0, Longitude: -179.9}
		d := DistanceKm(from, to)
		if math.Abs(d-22.24) > 0.1 {
			t.Errorf("Expected ~22.24 km across antimeridian, got %f", d)
		}
	})

	t.Run("Short hop near the pole", func(t *testing.T) {
		from := Geographic{Latitude: 89.9, Longitude: 0}
		to := Geographic{Latitude: 89.9, Longitude: 180}
		d := DistanceKm(from, to)
		if math.Abs(d-22.24) > 0.1 {
			t.Errorf("Expected ~22.24 km over the pole, got %f", d)
		}
	})

	t.Run("Symmetric in both directions", func(t *testing.T) {
		from := Geographic{Latitude: 48.3617, Longitude: 11.7833}
		to := Geographic{Latitude: 51.1886, Longitude: -1.0340}
		if d1, d2 := DistanceKm(from, to), DistanceKm(to, from); math.Abs(d1-d2) > 1e-9 {
			t.Errorf("Expected symmetric distance, got %f and %f", d1, d2)
		}
	})
}

// TestNormalizeLongitudeDelta tests longitude difference wrapping.
func TestNormalizeLongitudeDelta(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Zero", 0, 0},
		{"Within range positive", 90, 90},
		{"Within range negative", -90, -90},
		{"Wraps eastward crossing", 359.8, -0.2},
		{"Wraps westward crossing", -359.8, 0.2},
		{"Exactly 180", 180, 180},
		{"Just past 180", 180.5, -179.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLongitudeDelta(tt.input)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}

// TestBearing tests initial bearing calculation along the cardinal directions.
func TestBearing(t *testing.T) {
	origin := Geographic{Latitude: 0, Longitude: 0}

	tests := []struct {
		name     string
		to       Geographic
		expected float64
	}{
		{"Due north", Geographic{Latitude: 1, Longitude: 0}, 0},
		{"Due east", Geographic{Latitude: 0, Longitude: 1}, 90},
		{"Due south", Geographic{Latitude: -1, Longitude: 0}, 180},
		{"Due west", Geographic{Latitude: 0, Longitude: -1}, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(origin, tt.to)
			if math.Abs(got-tt.expected) > 0.01 {
				t.Errorf("Expected bearing %f, got %f", tt.expected, got)
			}
		})
	}

	t.Run("Bearing across the antimeridian points east", func(t *testing.T) {
		from := Geographic{Latitude: 0, Longitude: 179.9}
		to := Geographic{Latitude: 0, Longitude: -179.9}
		got := Bearing(from, to)
		if math.Abs(got-90) > 0.01 {
			t.Errorf("Expected bearing 90 across antimeridian, got %f", got)
		}
	})
}

// TestNormalizeBearing tests bearing normalization into [0, 360).
func TestNormalizeBearing(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Zero stays zero", 0, 0},
		{"Negative wraps", -90, 270},
		{"Over 360 wraps", 450, 90},
		{"360 becomes zero", 360, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeBearing(tt.input)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}

// TestGeographicValid tests coordinate bounds checking.
func TestGeographicValid(t *testing.T) {
	tests := []struct {
		name  string
		pos   Geographic
		valid bool
	}{
		{"Typical position", Geographic{Latitude: 48.3617, Longitude: 11.7833}, true},
		{"Boundary north pole", Geographic{Latitude: 90, Longitude: 0}, true},
		{"Boundary antimeridian", Geographic{Latitude: 0, Longitude: -180}, true},
		{"Latitude too large", Geographic{Latitude: 90.1, Longitude: 0}, false},
		{"Longitude too large", Geographic{Latitude: 0, Longitude: 180.1}, false},
		{"NaN latitude", Geographic{Latitude: math.NaN(), Longitude: 0}, false},
		{"Infinite longitude", Geographic{Latitude: 0, Longitude: math.Inf(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.Valid(); got != tt.valid {
				t.Errorf("Expected Valid()=%v for %+v, got %v", tt.valid, tt.pos, got)
			}
		})
	}
}
