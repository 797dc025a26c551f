// internal/geo/haversine.go
package geo

import (
	"math"

	"bloodlink/internal/models"
)

// earthRadiusKM is the mean Earth radius used by the haversine formula.
const earthRadiusKM = 6371.0

// Distance returns the great-circle distance in kilometers between two
// coordinate pairs in decimal degrees.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// HospitalDistance returns the distance from a query point to a hospital, or
// nil when the hospital has no coordinates. A nil result is a valid "unknown",
// not an error.
func HospitalDistance(h *models.Hospital, lat, lng float64) *float64 {
	if !h.HasCoordinates() {
		return nil
	}
	d := Distance(lat, lng, *h.Latitude, *h.Longitude)
	return &d
}

// RoundKM rounds a distance to two decimals for presentation.
func RoundKM(km float64) float64 {
	return math.Round(km*100) / 100
}
