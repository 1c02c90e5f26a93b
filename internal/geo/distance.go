// Package geo provides great-circle distance helpers.
package geo

import (
	"math"

	"github.com/ukydev/boardcheck/internal/models"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

// Distance returns the haversine great-circle distance in meters between two
// coordinates given in decimal degrees. Inputs must be finite.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push s a hair past 1 for antipodal points
	s = math.Min(1, s)
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(s))
}

// Between returns the distance in meters between two locations.
func Between(a, b models.Location) float64 {
	return Distance(a.Lat, a.Lng, b.Lat, b.Lng)
}
