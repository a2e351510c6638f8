package aprs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/unklstewy/ogn-scope/pkg/coordinates"
)

// DecodeError reports a line that could not be parsed into a well-formed
// record. It is non-fatal: the ingestion loop counts it, logs it and moves on.
type DecodeError struct {
	// Line is the offending raw line
	Line string

	// Reason describes what failed
	Reason string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s: %q", e.Reason, e.Line)
}

// IsDecodeError checks if an error is a DecodeError and returns it.
func IsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// errGroundStation marks a position beacon sent by a receiver site rather
// than an aircraft; ParseLineAt turns it into a status message.
var errGroundStation = errors.New("ground station beacon")

// Field widths of the fixed position-report prefix.
const (
	timestampLen = 7 // "074548h"
	latitudeLen  = 8 // "5111.32N"
	longitudeLen = 9 // "00102.04W"
)

// rotToTurnsPerMin converts the rot unit of the OGN extension (half-turns
// per minute) into full turns per minute.
const rotToTurnsPerMin = 0.5

// ParseLine decodes one raw APRS-IS line, resolving the report timestamp
// against the current wall clock.
func ParseLine(line string) (Message, error) {
	return ParseLineAt(line, time.Now().UTC())
}

// ParseLineAt decodes one raw APRS-IS line into a comment, a status
// message or an aircraft report. The report's HHMMSS timestamp is resolved
// against now, shifting back one day when it would land in the future.
// Lines that fit no record shape yield a *DecodeError.
func ParseLineAt(line string, now time.Time) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Message{}, &DecodeError{Line: line, Reason: "empty line"}
	}
	if line[0] == '#' {
		return Message{Kind: KindComment, Text: line}, nil
	}

	header, payload, ok := strings.Cut(line, ":")
	if !ok || payload == "" {
		return Message{}, &DecodeError{Line: line, Reason: "missing payload separator"}
	}
	source, path, ok := strings.Cut(header, ">")
	if !ok || source == "" {
		return Message{}, &DecodeError{Line: line, Reason: "missing source callsign"}
	}

	// Server-injected packets carry receiver infrastructure, not aircraft.
	if strings.Contains(path, "TCPIP*") {
		return Message{Kind: KindStatus, Text: line}, nil
	}

	switch payload[0] {
	case '>':
		// Receiver status beacon.
		return Message{Kind: KindStatus, Text: line}, nil
	case '/':
		report, err := parsePosition(line, source, path, payload[1:], now)
		if errors.Is(err, errGroundStation) {
			return Message{Kind: KindStatus, Text: line}, nil
		}
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindReport, Report: report}, nil
	default:
		return Message{}, &DecodeError{Line: line, Reason: "unsupported payload type"}
	}
}

// parsePosition decodes a timestamped position payload (everything after
// the leading "/" data type indicator).
func parsePosition(line, source, path, body string, now time.Time) (*Report, error) {
	// Fixed prefix: timestamp, latitude, symbol table, longitude, symbol code.
	const prefixLen = timestampLen + latitudeLen + 1 + longitudeLen + 1
	if len(body) < prefixLen {
		return nil, &DecodeError{Line: line, Reason: "truncated position report"}
	}

	reportTime, reason := parseTimestamp(body[:timestampLen], now)
	if reason != "" {
		return nil, &DecodeError{Line: line, Reason: reason}
	}
	lat, reason := parseLatitude(body[timestampLen : timestampLen+latitudeLen])
	if reason != "" {
		return nil, &DecodeError{Line: line, Reason: reason}
	}
	lon, reason := parseLongitude(body[timestampLen+latitudeLen+1 : timestampLen+latitudeLen+1+longitudeLen])
	if reason != "" {
		return nil, &DecodeError{Line: line, Reason: reason}
	}

	report := &Report{
		Receiver: receiverFromPath(path),
		Time:     reportTime,
	}

	rest := body[prefixLen:]

	// Optional course/speed block: "086/007", dots when unknown.
	if cse, spd, ok := splitCourseSpeed(rest); ok {
		if cse != "..." {
			v, err := strconv.Atoi(cse)
			if err == nil && v >= 0 && v <= 360 {
				course := float64(v)
				report.CourseDeg = &course
			}
		}
		if spd != "..." {
			v, err := strconv.Atoi(spd)
			if err == nil && v >= 0 {
				speed := float64(v) * coordinates.KnotsToKmh
				report.SpeedKmh = &speed
			}
		}
		rest = rest[7:]
	}

	// Optional altitude block: "/A=000607", feet MSL.
	if strings.HasPrefix(rest, "/A=") && len(rest) >= 9 {
		feet, err := strconv.Atoi(rest[3:9])
		if err != nil {
			return nil, &DecodeError{Line: line, Reason: "malformed altitude"}
		}
		alt := float64(feet) * coordinates.FeetToMeters
		report.AltitudeM = &alt
		rest = rest[9:]
	}

	ext := parseExtension(strings.Fields(rest))

	report.Latitude = lat.degrees(ext.latDigit)
	report.Longitude = lon.degrees(ext.lonDigit)
	if report.Latitude < -90 || report.Latitude > 90 {
		return nil, &DecodeError{Line: line, Reason: "latitude out of range"}
	}
	if report.Longitude < -180 || report.Longitude > 180 {
		return nil, &DecodeError{Line: line, Reason: "longitude out of range"}
	}

	report.ClimbMps = ext.climbMps
	report.TurnRate = ext.turnRate

	if ext.hasID {
		report.Address = Address{ID: ext.address, Type: ext.addressType}
		report.AircraftType = ext.aircraftType
		report.Stealth = ext.stealth
		report.NoTrack = ext.noTrack
		return report, nil
	}

	// Older and minimal trackers omit the id token; their identity comes
	// from the source callsign prefix. Anything else beaconing a position
	// is a receiver site.
	addr, ok := identityFromCallsign(source)
	if !ok {
		return nil, errGroundStation
	}
	report.Address = addr
	return report, nil
}

// dmCoord is a degrees-minutes coordinate before hemisphere sign and
// precision enhancement are applied.
type dmCoord struct {
	deg int
	min float64
	neg bool
}

// degrees converts to decimal degrees. extra is the third decimal digit
// of the minutes from a "!Wab!" precision token, 0 when absent.
func (c dmCoord) degrees(extra int) float64 {
	v := float64(c.deg) + (c.min+float64(extra)*0.001)/60.0
	if c.neg {
		v = -v
	}
	return v
}

// parseLatitude decodes "DDMM.mmH" with hemisphere N/S in either case.
func parseLatitude(s string) (dmCoord, string) {
	if len(s) != latitudeLen {
		return dmCoord{}, "malformed latitude"
	}
	var neg bool
	switch s[latitudeLen-1] {
	case 'N', 'n':
	case 'S', 's':
		neg = true
	default:
		return dmCoord{}, "bad latitude hemisphere"
	}
	deg, err := strconv.Atoi(s[:2])
	if err != nil || deg < 0 {
		return dmCoord{}, "malformed latitude degrees"
	}
	min, err := strconv.ParseFloat(s[2:latitudeLen-1], 64)
	if err != nil || min < 0 {
		return dmCoord{}, "malformed latitude minutes"
	}
	if min >= 60 {
		return dmCoord{}, "latitude minutes out of range"
	}
	return dmCoord{deg: deg, min: min, neg: neg}, ""
}

// parseLongitude decodes "DDDMM.mmH" with hemisphere E/W in either case.
func parseLongitude(s string) (dmCoord, string) {
	if len(s) != longitudeLen {
		return dmCoord{}, "malformed longitude"
	}
	var neg bool
	switch s[longitudeLen-1] {
	case 'E', 'e':
	case 'W', 'w':
		neg = true
	default:
		return dmCoord{}, "bad longitude hemisphere"
	}
	deg, err := strconv.Atoi(s[:3])
	if err != nil || deg < 0 {
		return dmCoord{}, "malformed longitude degrees"
	}
	min, err := strconv.ParseFloat(s[3:longitudeLen-1], 64)
	if err != nil || min < 0 {
		return dmCoord{}, "malformed longitude minutes"
	}
	if min >= 60 {
		return dmCoord{}, "longitude minutes out of range"
	}
	return dmCoord{deg: deg, min: min, neg: neg}, ""
}

// parseTimestamp decodes "HHMMSSh" (UTC). A time more than an hour ahead
// of now is taken to be from the previous day.
func parseTimestamp(s string, now time.Time) (time.Time, string) {
	if len(s) != timestampLen {
		return time.Time{}, "malformed timestamp"
	}
	if s[timestampLen-1] != 'h' && s[timestampLen-1] != 'H' {
		return time.Time{}, "unsupported timestamp format"
	}
	hh, err1 := strconv.Atoi(s[0:2])
	mm, err2 := strconv.Atoi(s[2:4])
	ss, err3 := strconv.Atoi(s[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, "malformed timestamp"
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return time.Time{}, "timestamp out of range"
	}
	t := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, ss, 0, time.UTC)
	if t.After(now.Add(time.Hour)) {
		t = t.AddDate(0, 0, -1)
	}
	return t, ""
}

// splitCourseSpeed recognizes the leading "CCC/SSS" block. Either side may
// be dots for unknown.
func splitCourseSpeed(rest string) (course, speed string, ok bool) {
	if len(rest) < 7 || rest[3] != '/' {
		return "", "", false
	}
	course, speed = rest[:3], rest[4:7]
	if !courseSpeedToken(course) || !courseSpeedToken(speed) {
		return "", "", false
	}
	return course, speed, true
}

func courseSpeedToken(s string) bool {
	if s == "..." {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// extension collects the OGN-specific fields of the comment segment.
type extension struct {
	hasID        bool
	stealth      bool
	noTrack      bool
	aircraftType AircraftType
	addressType  AddressType
	address      string
	climbMps     *float64
	turnRate     *float64
	latDigit     int
	lonDigit     int
}

// parseExtension scans the space-separated tokens after the base report.
// Unrecognized and malformed tokens are signal metadata and are ignored.
func parseExtension(tokens []string) extension {
	var ext extension
	for _, tok := range tokens {
		switch {
		case len(tok) == 5 && tok[0] == '!' && tok[1] == 'W' && tok[4] == '!':
			// Precision enhancement: one extra digit of minutes each.
			if isDigit(tok[2]) && isDigit(tok[3]) {
				ext.latDigit = int(tok[2] - '0')
				ext.lonDigit = int(tok[3] - '0')
			}
		case len(tok) > 4 && strings.HasPrefix(tok, "id"):
			// Packed identity byte and device address, e.g. "id0ADDE626".
			b, err := strconv.ParseUint(tok[2:4], 16, 8)
			if err != nil {
				continue
			}
			ext.hasID = true
			ext.stealth = b&0x80 != 0
			ext.noTrack = b&0x40 != 0
			ext.aircraftType = AircraftType((b >> 2) & 0x0F)
			ext.addressType = AddressType(b & 0x03)
			ext.address = strings.ToUpper(tok[4:])
		case strings.HasSuffix(tok, "fpm"):
			if v, err := strconv.Atoi(strings.TrimSuffix(tok, "fpm")); err == nil {
				climb := float64(v) * coordinates.FpmToMps
				ext.climbMps = &climb
			}
		case strings.HasSuffix(tok, "rot"):
			if v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "rot"), 64); err == nil {
				turn := v * rotToTurnsPerMin
				ext.turnRate = &turn
			}
		}
	}
	return ext
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// identityFromCallsign derives the aircraft identity from the source
// callsign of reports without an id token.
func identityFromCallsign(source string) (Address, bool) {
	if len(source) <= 3 {
		return Address{}, false
	}
	id := strings.ToUpper(source[3:])
	switch strings.ToUpper(source[:3]) {
	case "FLR":
		return Address{ID: id, Type: AddressFlarm}, true
	case "ICA":
		return Address{ID: id, Type: AddressICAO}, true
	case "OGN":
		return Address{ID: id, Type: AddressOGN}, true
	default:
		return Address{}, false
	}
}

// receiverFromPath extracts the receiving station, the last element of the
// digipeater path.
func receiverFromPath(path string) string {
	if path == "" {
		return ""
	}
	parts := strings.Split(path, ",")
	return parts[len(parts)-1]
}
