// Package geo provides great-circle distance and GeoJSON export for venues.
package geo

import "math"

// Distance constants.
const (
	EarthRadiusMiles = 3959.0  // mean Earth radius used by the haversine formula
	MetersPerMile    = 1609.34 // conversion used when building radius queries
)

// DistanceMiles returns the haversine great-circle distance in miles between
// two WGS84 points. It is symmetric and zero for identical points.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// MilesToMeters converts a radius in miles to meters.
func MilesToMeters(miles float64) float64 {
	return miles * MetersPerMile
}

// RoundTenth rounds v to one decimal place.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
