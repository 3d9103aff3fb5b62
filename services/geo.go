package services

import (
	"math"
	"sort"
)

// EarthRadiusKm is the fixed earth radius used by the haversine computation.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// coordinates given in degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Candidate is one entry in a proximity scan. Latitude/Longitude may be nil;
// such candidates are excluded from every result, never treated as
// distance-zero.
type Candidate struct {
	Latitude  *float64
	Longitude *float64
	Payload   interface{}
}

// Nearby is a candidate that passed the radius filter, annotated with its
// computed distance.
type Nearby struct {
	DistanceKm float64
	Payload    interface{}
}

// WithinRadius filters candidates to those whose great-circle distance to the
// observer is at most radiusKm (inclusive boundary). This is a full linear
// scan; the candidate set (currently-walking dogs) is expected to stay small.
// Results are sorted by ascending distance for determinism.
func WithinRadius(observerLat, observerLng float64, candidates []Candidate, radiusKm float64) []Nearby {
	nearby := make([]Nearby, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Latitude == nil || candidate.Longitude == nil {
			continue
		}
		distance := Haversine(observerLat, observerLng, *candidate.Latitude, *candidate.Longitude)
		if distance <= radiusKm {
			nearby = append(nearby, Nearby{DistanceKm: distance, Payload: candidate.Payload})
		}
	}
	sort.Slice(nearby, func(i, j int) bool { return nearby[i].DistanceKm < nearby[j].DistanceKm })
	return nearby
}
