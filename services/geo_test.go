package services

import (
	"math"
	"testing"
)

func TestHaversineZeroForSamePoint(t *testing.T) {
	if d := Haversine(48.8566, 2.3522, 48.8566, 2.3522); d != 0 {
		t.Fatalf("expected 0 distance for identical points, got %f", d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	a := Haversine(48.8566, 2.3522, 51.5074, -0.1278)
	b := Haversine(51.5074, -0.1278, 48.8566, 2.3522)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("expected symmetric distances, got %f and %f", a, b)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Paris -> London is roughly 344 km
	d := Haversine(48.8566, 2.3522, 51.5074, -0.1278)
	if d < 330 || d > 360 {
		t.Fatalf("expected roughly 344km, got %f", d)
	}
}

func TestWithinRadiusInclusiveBoundary(t *testing.T) {
	observerLat, observerLng := 40.0, -74.0
	// ~0.04497 degrees of latitude is close to 5km
	targetLat := observerLat + 5.0/111.195

	lat, lng := targetLat, observerLng
	candidates := []Candidate{{Latitude: &lat, Longitude: &lng, Payload: "edge"}}

	d := Haversine(observerLat, observerLng, targetLat, observerLng)
	within := WithinRadius(observerLat, observerLng, candidates, d)
	if len(within) != 1 {
		t.Fatalf("expected candidate exactly at the radius to be included, got %d results", len(within))
	}

	outside := WithinRadius(observerLat, observerLng, candidates, d-0.001)
	if len(outside) != 0 {
		t.Fatalf("expected candidate beyond the radius to be excluded, got %d results", len(outside))
	}
}

func TestWithinRadiusExcludesMissingCoordinates(t *testing.T) {
	lat, lng := 40.0, -74.0
	candidates := []Candidate{
		{Latitude: &lat, Longitude: &lng, Payload: "has coords"},
		{Latitude: nil, Longitude: nil, Payload: "no coords"},
		{Latitude: &lat, Longitude: nil, Payload: "half coords"},
	}

	within := WithinRadius(40.0, -74.0, candidates, 5)
	if len(within) != 1 {
		t.Fatalf("expected only the located candidate, got %d results", len(within))
	}
	if within[0].Payload != "has coords" {
		t.Fatalf("unexpected payload %v", within[0].Payload)
	}
}

func TestWithinRadiusFourKilometerWalk(t *testing.T) {
	// Observer 4km south of a walking dog, searching with a 5km radius
	dogLat := 40.7128
	dogLng := -74.0060
	observerLat := dogLat - 4.0/111.195

	candidates := []Candidate{{Latitude: &dogLat, Longitude: &dogLng, Payload: "walking dog"}}
	within := WithinRadius(observerLat, dogLng, candidates, 5)
	if len(within) != 1 {
		t.Fatalf("expected the dog in range, got %d results", len(within))
	}
	if math.Abs(within[0].DistanceKm-4.0) > 0.01 {
		t.Fatalf("expected ~4.0km reported, got %f", within[0].DistanceKm)
	}
}

func TestWithinRadiusSortsAscending(t *testing.T) {
	observerLat, observerLng := 40.0, -74.0

	nearLat := observerLat + 1.0/111.195
	farLat := observerLat + 4.0/111.195
	midLat := observerLat + 2.0/111.195
	lng := observerLng

	candidates := []Candidate{
		{Latitude: &farLat, Longitude: &lng, Payload: "far"},
		{Latitude: &nearLat, Longitude: &lng, Payload: "near"},
		{Latitude: &midLat, Longitude: &lng, Payload: "mid"},
	}

	within := WithinRadius(observerLat, observerLng, candidates, 5)
	if len(within) != 3 {
		t.Fatalf("expected 3 results, got %d", len(within))
	}
	order := []string{"near", "mid", "far"}
	for i, want := range order {
		if within[i].Payload != want {
			t.Fatalf("expected %s at position %d, got %v", want, i, within[i].Payload)
		}
	}
	for i := 1; i < len(within); i++ {
		if within[i].DistanceKm < within[i-1].DistanceKm {
			t.Fatalf("results not sorted ascending: %f before %f", within[i-1].DistanceKm, within[i].DistanceKm)
		}
	}
}
