package geo

import (
	"math"
	"testing"
)

func TestHaversineKmZeroForIdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{31.2304, 121.4737},
		{-33.8688, 151.2093},
		{89.9, -179.9},
	}
	for _, p := range points {
		if d := HaversineKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Fatalf("distance between identical points (%v,%v) = %v, want 0", p[0], p[1], d)
		}
	}
}

func TestHaversineKmKnownDistance(t *testing.T) {
	// Shanghai People's Square to Lujiazui, roughly 4 km.
	d := HaversineKm(31.2304, 121.4737, 31.2397, 121.4998)
	if d < 2 || d > 6 {
		t.Fatalf("Shanghai cross-river distance = %v km, want ~4 km", d)
	}

	// Symmetry.
	back := HaversineKm(31.2397, 121.4998, 31.2304, 121.4737)
	if math.Abs(d-back) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", d, back)
	}
}

func TestHaversineNonNegative(t *testing.T) {
	pairs := [][4]float64{
		{0, 0, 0, 180},
		{-90, 0, 90, 0},
		{10.5, -20.25, -45.75, 170.1},
	}
	for _, p := range pairs {
		if d := HaversineKm(p[0], p[1], p[2], p[3]); d < 0 {
			t.Fatalf("negative distance %v for %v", d, p)
		}
	}
}

func TestHaversineMeters(t *testing.T) {
	km := HaversineKm(31.2304, 121.4737, 31.2397, 121.4998)
	m := HaversineMeters(31.2304, 121.4737, 31.2397, 121.4998)
	if math.Abs(m-km*1000) > 1e-6 {
		t.Fatalf("meters = %v, want %v", m, km*1000)
	}
}

func TestBearingRange(t *testing.T) {
	b := Bearing(31.2304, 121.4737, 31.2397, 121.4998)
	if b < 0 || b >= 360 {
		t.Fatalf("bearing %v outside [0,360)", b)
	}
	// Due north from the equator.
	north := Bearing(0, 0, 1, 0)
	if math.Abs(north) > 1e-6 {
		t.Fatalf("northward bearing = %v, want 0", north)
	}
}
