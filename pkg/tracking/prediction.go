// Package tracking dead-reckons aircraft positions forward from their
// report timestamps. The radar TUI uses it to plot smoothly between
// beacon arrivals; predictions are display-only and are never fed back
// into the state store.
package tracking

import (
	"math"
	"time"

	"github.com/unklstewy/ogn-scope/pkg/coordinates"
)

// confidenceHorizon is the prediction age at which confidence reaches
// zero. OGN beacons normally arrive every few seconds; half a minute
// without one means the extrapolation is guesswork.
const confidenceHorizon = 30 * time.Second

// Point is an aircraft state to extrapolate from. Optional fields are
// pointers: a nil speed or course means the position cannot be advanced
// horizontally and is returned unchanged.
type Point struct {
	// Position is the reported location
	Position coordinates.Geographic

	// Time is the report timestamp
	Time time.Time

	// SpeedKmh is the ground speed in kilometers per hour
	SpeedKmh *float64

	// CourseDeg is the ground track in degrees
	CourseDeg *float64

	// ClimbMps is the vertical speed in meters per second
	ClimbMps *float64
}

// Predicted is an extrapolated position.
type Predicted struct {
	// Position is the predicted location
	Position coordinates.Geographic

	// At is when the prediction is valid
	At time.Time

	// Confidence is a reliability measure in [0, 1], decaying with the
	// prediction age down to zero at the horizon
	Confidence float64
}

// Predict extrapolates a point to the given time: great-circle advance
// along the course at ground speed, climb applied to the altitude.
// A point without course or speed keeps its position; a point without
// climb keeps its altitude. Zero or negative time deltas return the
// point as-is with full confidence.
func Predict(p Point, at time.Time) Predicted {
	deltaT := at.Sub(p.Time).Seconds()
	if deltaT <= 0 {
		return Predicted{Position: p.Position, At: at, Confidence: 1.0}
	}

	confidence := math.Max(0.0, 1.0-deltaT/confidenceHorizon.Seconds())

	pos := p.Position
	if p.SpeedKmh != nil && p.CourseDeg != nil {
		distanceKm := *p.SpeedKmh * deltaT / 3600.0
		pos.Latitude, pos.Longitude = advance(pos.Latitude, pos.Longitude, *p.CourseDeg, distanceKm)
	}
	if p.ClimbMps != nil {
		pos.Altitude += *p.ClimbMps * deltaT
	}

	return Predicted{Position: pos, At: at, Confidence: confidence}
}

// advance moves a coordinate along a great circle by distanceKm on the
// given initial bearing.
func advance(lat, lon, bearingDeg, distanceKm float64) (float64, float64) {
	latRad := lat * coordinates.DegreesToRadians
	lonRad := lon * coordinates.DegreesToRadians
	bearingRad := bearingDeg * coordinates.DegreesToRadians
	angular := distanceKm / coordinates.EarthRadiusKm

	newLatRad := math.Asin(
		math.Sin(latRad)*math.Cos(angular) +
			math.Cos(latRad)*math.Sin(angular)*math.Cos(bearingRad),
	)
	newLonRad := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angular)*math.Cos(latRad),
		math.Cos(angular)-math.Sin(latRad)*math.Sin(newLatRad),
	)

	newLat := newLatRad * coordinates.RadiansToDegrees
	newLon := newLonRad * coordinates.RadiansToDegrees
	if newLon > 180.0 {
		newLon -= 360.0
	} else if newLon < -180.0 {
		newLon += 360.0
	}
	return newLat, newLon
}
