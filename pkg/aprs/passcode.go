package aprs

import "strings"

// Passcode computes the standard APRS-IS login passcode for a callsign:
// a 15-bit hash over the upper-cased base callsign (the part before any
// SSID dash). OGN relays accept read-only sessions with passcode -1, so
// this is only needed for users who want a verified login.
func Passcode(callsign string) int {
	base, _, _ := strings.Cut(strings.ToUpper(callsign), "-")
	hash := 0x73e2
	for i := 0; i < len(base); i += 2 {
		hash ^= int(base[i]) << 8
		if i+1 < len(base) {
			hash ^= int(base[i+1])
		}
	}
	return hash & 0x7fff
}
