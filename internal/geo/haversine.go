package geo

import (
	"errors"
	"math"
	"strings"
)

var ErrInvalidLocation = errors.New("invalid or missing coordinates")

// Unit is the distance unit used for radii and reported distances.
type Unit string

const (
	Miles      Unit = "mi"
	Kilometers Unit = "km"
)

const (
	EarthRadiusMiles = 3959.0
	EarthRadiusKm    = 6371.0

	metersPerMile = 1609.344
)

// ParseUnit falls back to miles for anything it does not recognise.
func ParseUnit(s string) Unit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "km", "kilometers", "kilometres":
		return Kilometers
	default:
		return Miles
	}
}

// EarthRadius returns R in the given unit.
func (u Unit) EarthRadius() float64 {
	if u == Kilometers {
		return EarthRadiusKm
	}
	return EarthRadiusMiles
}

// FromMeters converts a length in meters to the unit.
func (u Unit) FromMeters(m float64) float64 {
	if u == Kilometers {
		return m / 1000
	}
	return m / metersPerMile
}

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects NaN, out-of-range and the zero point, which is how a
// missing coordinate pair arrives from forms.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return ErrInvalidLocation
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidLocation
	}
	if p.Lat == 0 && p.Lng == 0 {
		return ErrInvalidLocation
	}
	return nil
}

// Haversine returns the great-circle distance between a and b:
// 2·R·asin(√(sin²(Δlat/2) + cos(lat1)·cos(lat2)·sin²(Δlng/2))).
func Haversine(a, b Point, unit Unit) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := degreesToRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// floating point can push h a hair above 1 for antipodal points
	if h > 1 {
		h = 1
	}
	return 2 * unit.EarthRadius() * math.Asin(math.Sqrt(h))
}

// RoundDistance rounds a distance to 2 decimals for display only.
func RoundDistance(d float64) float64 {
	return math.Round(d*100) / 100
}

// BoundingBox returns the lat/lng box enclosing a circle of radius around p.
// A box that crosses the antimeridian wraps, leaving min.Lng greater than
// max.Lng; test membership with LngWithin. It is a prefilter; callers still
// filter exactly with Haversine.
func BoundingBox(p Point, radius float64, unit Unit) (min, max Point) {
	angular := radius / unit.EarthRadius()
	latDelta := radiansToDegrees(angular)
	min = Point{Lat: math.Max(-90, p.Lat-latDelta), Lng: -180}
	max = Point{Lat: math.Min(90, p.Lat+latDelta), Lng: 180}

	// a circle reaching a pole spans every longitude
	if p.Lat+latDelta >= 90 || p.Lat-latDelta <= -90 {
		return min, max
	}

	lngDelta := radiansToDegrees(math.Asin(math.Sin(angular) / math.Cos(degreesToRadians(p.Lat))))
	min.Lng = wrapLng(p.Lng - lngDelta)
	max.Lng = wrapLng(p.Lng + lngDelta)
	return min, max
}

// LngWithin reports whether lng lies in [min, max], where min > max means
// the range wraps across the antimeridian.
func LngWithin(lng, min, max float64) bool {
	if min <= max {
		return lng >= min && lng <= max
	}
	return lng >= min || lng <= max
}

func wrapLng(lng float64) float64 {
	switch {
	case lng > 180:
		return lng - 360
	case lng < -180:
		return lng + 360
	}
	return lng
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
