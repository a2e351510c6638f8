package api

import (
	"time"

	"github.com/unklstewy/ogn-scope/internal/store"
	"github.com/unklstewy/ogn-scope/pkg/aprs"
)

// PositionView is the JSON position shape.
type PositionView struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AircraftStateView is the JSON projection of one aircraft state.
// Numeric fields the aircraft never reported serialize as null, so
// callers can distinguish "unknown" from "zero".
type AircraftStateView struct {
	Address       string       `json:"address"`
	AddressType   string       `json:"address_type"`
	AircraftType  string       `json:"aircraft_type"`
	Position      PositionView `json:"position"`
	Altitude      *float64     `json:"altitude"`
	Speed         *float64     `json:"speed"`
	VerticalSpeed *float64     `json:"vertical_speed"`
	TurnRate      *float64     `json:"turn_rate"`
	Course        *float64     `json:"course"`

	// Timestamp is the report time in Unix seconds; AgeSeconds is the
	// same information pre-computed against the query time.
	Timestamp  int64   `json:"timestamp"`
	AgeSeconds float64 `json:"age_seconds"`

	// DistanceKm is the great-circle distance from the query center.
	// Absent on single-aircraft lookups, which have no center.
	DistanceKm *float64 `json:"distance_km,omitempty"`

	Receiver string `json:"receiver"`
}

// viewFromReport projects an aircraft state into the response shape.
func viewFromReport(rep aprs.Report, now time.Time) AircraftStateView {
	return AircraftStateView{
		Address:       rep.Address.ID,
		AddressType:   rep.Address.Type.String(),
		AircraftType:  rep.AircraftType.String(),
		Position:      PositionView{Latitude: rep.Latitude, Longitude: rep.Longitude},
		Altitude:      rep.AltitudeM,
		Speed:         rep.SpeedKmh,
		VerticalSpeed: rep.ClimbMps,
		TurnRate:      rep.TurnRate,
		Course:        rep.CourseDeg,
		Timestamp:     rep.Time.Unix(),
		AgeSeconds:    now.Sub(rep.Time).Seconds(),
		Receiver:      rep.Receiver,
	}
}

// viewFromResult is viewFromReport plus the query-path distance.
func viewFromResult(res store.Result, now time.Time) AircraftStateView {
	v := viewFromReport(res.Report, now)
	d := res.DistanceKm
	v.DistanceKm = &d
	return v
}
