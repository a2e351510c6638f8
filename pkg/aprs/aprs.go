// Package aprs implements the OGN flavor of APRS-IS: a TCP client that
// maintains a logged-in session to a relay server, and a decoder that turns
// raw beacon lines into structured aircraft reports.
package aprs

import (
	"fmt"
	"time"
)

// AddressType identifies the class of transceiver address carried in a beacon.
type AddressType uint8

const (
	// AddressRandom is a self-assigned address that may change between flights
	AddressRandom AddressType = 0

	// AddressICAO is an official ICAO 24-bit transponder address
	AddressICAO AddressType = 1

	// AddressFlarm is a FLARM device address
	AddressFlarm AddressType = 2

	// AddressOGN is an OGN tracker address
	AddressOGN AddressType = 3
)

// String returns the lower-case name used in logs and API responses.
func (t AddressType) String() string {
	switch t {
	case AddressICAO:
		return "icao"
	case AddressFlarm:
		return "flarm"
	case AddressOGN:
		return "ogn"
	default:
		return "random"
	}
}

// Address uniquely identifies one aircraft across reports.
// It is the key of the state store: the same device address can exist
// under different address types without colliding.
type Address struct {
	// ID is the upper-case device address, e.g. "DDE626"
	ID string

	// Type is the address class the device transmits under
	Type AddressType
}

// String formats the address as "type:id" for logs and diagnostics.
func (a Address) String() string {
	return fmt.Sprintf("%s:%s", a.Type, a.ID)
}

// AircraftType is the aircraft category nibble conveyed by the OGN
// extension. Values without a protocol meaning report as unknown.
type AircraftType uint8

const (
	AircraftUnknown        AircraftType = 0
	AircraftGlider         AircraftType = 1
	AircraftTowPlane       AircraftType = 2
	AircraftHelicopter     AircraftType = 3
	AircraftParachute      AircraftType = 4
	AircraftDropPlane      AircraftType = 5
	AircraftHangGlider     AircraftType = 6
	AircraftParaglider     AircraftType = 7
	AircraftPiston         AircraftType = 8
	AircraftJet            AircraftType = 9
	AircraftBalloon        AircraftType = 11
	AircraftAirship        AircraftType = 12
	AircraftUAV            AircraftType = 13
	AircraftStaticObstacle AircraftType = 15
)

// String returns the lower-case category name, "unknown" for reserved values.
func (t AircraftType) String() string {
	switch t {
	case AircraftGlider:
		return "glider"
	case AircraftTowPlane:
		return "tow plane"
	case AircraftHelicopter:
		return "helicopter"
	case AircraftParachute:
		return "parachute"
	case AircraftDropPlane:
		return "drop plane"
	case AircraftHangGlider:
		return "hang glider"
	case AircraftParaglider:
		return "paraglider"
	case AircraftPiston:
		return "piston aircraft"
	case AircraftJet:
		return "jet"
	case AircraftBalloon:
		return "balloon"
	case AircraftAirship:
		return "airship"
	case AircraftUAV:
		return "uav"
	case AircraftStaticObstacle:
		return "static obstacle"
	default:
		return "unknown"
	}
}

// Report is one decoded aircraft position beacon.
// Optional fields are pointers: nil means the report did not carry the
// field, which is distinct from a reported zero.
type Report struct {
	// Address is the transceiver identity the beacon belongs to
	Address Address

	// AircraftType is the protocol-conveyed aircraft category
	AircraftType AircraftType

	// Stealth is the operator-set privacy flag permitting storage but
	// forbidding publication
	Stealth bool

	// NoTrack is the operator-set privacy flag forbidding both storage
	// and publication
	NoTrack bool

	// Latitude in decimal degrees, positive north
	Latitude float64

	// Longitude in decimal degrees, positive east
	Longitude float64

	// AltitudeM is the altitude in meters MSL
	AltitudeM *float64

	// SpeedKmh is the ground speed in kilometers per hour
	SpeedKmh *float64

	// CourseDeg is the ground track in degrees (0-360)
	CourseDeg *float64

	// ClimbMps is the vertical speed in meters per second, positive up
	ClimbMps *float64

	// TurnRate is the rotation rate in turns per minute
	TurnRate *float64

	// Receiver is the callsign of the ground station that heard the beacon
	Receiver string

	// Time is the report timestamp (UTC)
	Time time.Time
}

// Storable reports whether the beacon may be written to a state store.
// No-tracking aircraft must never be stored.
func (r *Report) Storable() bool {
	return !r.NoTrack
}

// Publishable reports whether the beacon may appear in query output.
// Both privacy flags forbid publication.
func (r *Report) Publishable() bool {
	return !r.NoTrack && !r.Stealth
}

// MessageKind classifies a decoded APRS-IS line.
type MessageKind int

const (
	// KindComment is a server comment line ("# ..."), used for liveness
	KindComment MessageKind = iota

	// KindStatus is receiver/infrastructure traffic: status beacons,
	// ground station position beacons and server-injected packets
	KindStatus

	// KindReport is an aircraft position report
	KindReport
)

// Message is the result of decoding one raw line.
type Message struct {
	// Kind says which of the fields below is meaningful
	Kind MessageKind

	// Text is the raw line for comment and status messages
	Text string

	// Report is the decoded beacon, set only for KindReport
	Report *Report
}
