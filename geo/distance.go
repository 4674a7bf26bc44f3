// Package geo holds great-circle distance helpers and the geocoding client.
package geo

import (
	"fmt"
	"math"

	"greenbridge/models"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects coordinates outside the valid degree ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("coordinates (%v, %v): %w", p.Lat, p.Lon, models.ErrInvalidArgument)
	}
	return nil
}

// PartyPoint returns the party's coordinates, or nil when either is unknown.
func PartyPoint(p *models.Party) *Point {
	if !p.HasCoordinates() {
		return nil
	}
	return &Point{Lat: *p.Latitude, Lon: *p.Longitude}
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	dφ := (lat2 - lat1) * math.Pi / 180
	dλ := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dφ/2)*math.Sin(dφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	// Rounding can push a slightly above 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// Distance returns the distance between a and b, or +Inf when either point
// is unknown. Callers treat +Inf as "exclude from radius filtering".
func Distance(a, b *Point) float64 {
	if a == nil || b == nil {
		return math.Inf(1)
	}
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Known reports whether d is a real distance rather than the unknown sentinel.
func Known(d float64) bool {
	return !math.IsInf(d, 0) && !math.IsNaN(d)
}
