package coordinates

import "math"

// Constants for coordinate and unit conversions
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusKm is the Earth's radius in kilometers (WGS84 mean radius)
	EarthRadiusKm = 6371.0

	// FeetToMeters converts feet to meters
	FeetToMeters = 0.3048

	// MetersToFeet converts meters to feet
	MetersToFeet = 3.28084

	// KnotsToKmh converts knots to kilometers per hour
	KnotsToKmh = 1.852

	// FpmToMps converts feet per minute to meters per second
	FpmToMps = 0.00508
)

// Geographic represents a position on Earth's surface.
// Uses the WGS84 coordinate system (same as GPS).
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64

	// Altitude in meters above mean sea level (MSL)
	Altitude float64
}

// Valid reports whether latitude and longitude are finite and within
// WGS84 bounds. Altitude is not checked.
func (g Geographic) Valid() bool {
	if math.IsNaN(g.Latitude) || math.IsInf(g.Latitude, 0) {
		return false
	}
	if math.IsNaN(g.Longitude) || math.IsInf(g.Longitude, 0) {
		return false
	}
	return g.Latitude >= -90 && g.Latitude <= 90 &&
		g.Longitude >= -180 && g.Longitude <= 180
}

// NormalizeLongitudeDelta wraps a longitude difference in degrees into
// the range [-180, 180], so that two points straddling the antimeridian
// are a fraction of a degree apart, not nearly 360.
func NormalizeLongitudeDelta(dLon float64) float64 {
	for dLon > 180 {
		dLon -= 360
	}
	for dLon < -180 {
		dLon += 360
	}
	return dLon
}

// DistanceKm calculates the great-circle distance between two points.
// Uses the Haversine formula, which stays accurate for short hops near
// the poles and across the ±180° meridian.
// Returns distance in kilometers.
func DistanceKm(from, to Geographic) float64 {
	lat1Rad := from.Latitude * DegreesToRadians
	lat2Rad := to.Latitude * DegreesToRadians

	dLat := lat2Rad - lat1Rad
	dLon := NormalizeLongitudeDelta(to.Longitude-from.Longitude) * DegreesToRadians

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Bearing calculates the initial bearing (forward azimuth) from one point to another.
// Uses spherical trigonometry to calculate the bearing along a great circle.
// Returns bearing in degrees (0-360), where 0/360 = North, 90 = East, 180 = South, 270 = West.
func Bearing(from, to Geographic) float64 {
	lat1 := from.Latitude * DegreesToRadians
	lat2 := to.Latitude * DegreesToRadians
	dLon := NormalizeLongitudeDelta(to.Longitude-from.Longitude) * DegreesToRadians

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := math.Atan2(y, x) * RadiansToDegrees

	return NormalizeBearing(bearing)
}

// NormalizeBearing ensures a bearing is in the range [0, 360).
func NormalizeBearing(bearing float64) float64 {
	b := math.Mod(bearing, 360.0)
	if b < 0 {
		b += 360.0
	}
	return b
}
