package geo

import (
	"math"

	"safecircle/apperr"
)

const (
	EarthRadiusKm   = 6371.0
	DefaultRadiusKm = 2.0
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports malformed coordinates. Distance itself never fails, so
// callers validate input before any side effect.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return apperr.Validation("location must be a finite lat/lng pair")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return apperr.Validation("latitude must be within [-90, 90]")
	}
	if p.Lng < -180 || p.Lng > 180 {
		return apperr.Validation("longitude must be within [-180, 180]")
	}
	return nil
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, h)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func IsNearby(a, b Point, radiusKm float64) bool {
	return Distance(a, b) <= radiusKm
}
