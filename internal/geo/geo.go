package geo

import (
	"math"

	"cropwise-backend/internal/models"
)

// Mean earth radius in meters. Spherical approximation is within ~0.5% at
// field scale, which is all the outbreak geofence needs.
const earthRadiusMeters = 6371000

// DistanceMeters computes the great-circle distance between two points using
// the haversine formula.
func DistanceMeters(a, b models.LatLng) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// WithinRadius reports whether p lies inside the circle around center.
func WithinRadius(p, center models.LatLng, radiusMeters float64) bool {
	return DistanceMeters(p, center) <= radiusMeters
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}
