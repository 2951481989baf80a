// Package geo: pure coordinate math for clinic ranking. No dependencies, no
// side effects, so every caller can rely on it from concurrent request paths.
package geo

import (
	"fmt"
	"math"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Coordinate is a WGS 84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies inside the WGS 84 domain.
// NaN fails both range checks, so it never validates.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// DistanceKm returns the great-circle distance between a and b.
// Invalid input yields NaN rather than a panic; invalid coordinates must not
// reach the trigonometry below.
func DistanceKm(a, b Coordinate) float64 {
	if !a.Valid() || !b.Valid() {
		return math.NaN()
	}
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Undefined reports whether a distance came back as the NaN sentinel.
func Undefined(km float64) bool { return math.IsNaN(km) }

// FormatDistance renders a distance for display:
// below 1 km in rounded meters, below 10 km with one decimal, else rounded km.
func FormatDistance(km float64) string {
	if Undefined(km) {
		return ""
	}
	if km < 1 {
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	}
	if km < 10 {
		return fmt.Sprintf("%.1fkm", km)
	}
	return fmt.Sprintf("%dkm", int(math.Round(km)))
}
