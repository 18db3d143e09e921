package geo

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestDistance_SamePoint(t *testing.T) {
	points := []Coordinate{
		{0, 0},
		{40.7128, -74.0060},
		{-33.8688, 151.2093},
		{90, 0},
		{-90, 180},
	}

	for _, p := range points {
		if d := Distance(p.Latitude, p.Longitude, p.Latitude, p.Longitude); d != 0 {
			t.Errorf("Distance(%v, %v) = %f, want 0", p, p, d)
		}
	}
}

func TestDistance_NewYork_London(t *testing.T) {
	d := Distance(40.7128, -74.0060, 51.5074, -0.1278)
	// ~5570 km is the spherical figure, kept on purpose: see "NY-London fixture" in DESIGN.md.
	// The ellipsoidal distance on this route is ~15 km longer than on the 6371 km sphere.
	if !almost(d, 5585.2, 5) {
		t.Fatalf("want ~5585 km, got %f", d)
	}

	h := Haversine(40.7128, -74.0060, 51.5074, -0.1278)
	if !almost(h, 5570, 5) {
		t.Fatalf("haversine: want ~5570 km, got %f", h)
	}
}

func TestDistance_OneDegreeOnEquator(t *testing.T) {
	d := Distance(0, 0, 0, 1)
	if !almost(d, 111.3, 0.5) {
		t.Fatalf("want ~111.3 km, got %f", d)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{40.7128, -74.0060, 51.5074, -0.1278},
		{34.0522, -118.2437, 35.6762, 139.6503},
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{0, 0, 0, 1},
		{0, 0, 0, 179.9999},
		{10, 10, -10, -170},
		{52.52, 13.405, 52.5201, 13.4051},
		{-45, 170, 45, -10},
	}

	for _, p := range pairs {
		ab := Distance(p[0], p[1], p[2], p[3])
		ba := Distance(p[2], p[3], p[0], p[1])
		if !almost(ab, ba, 1e-9) {
			t.Errorf("asymmetric for %v: %f vs %f", p, ab, ba)
		}
	}
}

func TestDistance_NearAntipodalFallsBack(t *testing.T) {
	pairs := [][4]float64{
		{0, 0, 0, 179.9999},
		{0, 0, 0, 180},
		{0, 0, 0.5, 179.5},
		{10, 10, -10, -170},
	}

	for _, p := range pairs {
		km, converged := Inverse(p[0], p[1], p[2], p[3])
		if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
			t.Fatalf("non-finite distance for %v: %f", p, km)
		}
		if converged {
			t.Errorf("expected haversine fallback for %v", p)
		}
		if !almost(km, Haversine(p[0], p[1], p[2], p[3]), 1e-9) {
			t.Errorf("fallback should equal haversine for %v", p)
		}
	}
}

func TestInverse_Converges(t *testing.T) {
	km, converged := Inverse(34.0522, -118.2437, 35.6762, 139.6503)
	if !converged {
		t.Fatal("expected ellipsoidal solution to converge")
	}
	if !almost(km, 8838.47, 1) {
		t.Fatalf("want ~8838 km, got %f", km)
	}
}

func TestDistance_Poles(t *testing.T) {
	d := Distance(90, 0, -90, 0)
	if !almost(d, 20003.93, 1) {
		t.Fatalf("want ~20004 km pole to pole, got %f", d)
	}
}

func TestDistance_OutOfRangePassesThrough(t *testing.T) {
	d := Distance(120, 400, -95, -500)
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		t.Fatalf("expected finite non-negative distance, got %f", d)
	}
}

func TestBetween(t *testing.T) {
	a := Coordinate{Latitude: 0, Longitude: 0}
	b := Coordinate{Latitude: 0, Longitude: 1}
	km, converged := Between(a, b)
	if !converged || km != Distance(0, 0, 0, 1) {
		t.Fatalf("Between should match Distance, got %f (converged=%v)", km, converged)
	}

	// antipodal points on the equator do not converge
	if _, converged := Between(a, Coordinate{Latitude: 0, Longitude: 180}); converged {
		t.Error("expected the antipodal case to use the fallback")
	}
}

func TestHaversine_SamePoint(t *testing.T) {
	if d := Haversine(40.7128, -74.0060, 40.7128, -74.0060); d != 0 {
		t.Fatalf("want 0, got %f", d)
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{0, "0 m"},
		{0.85, "850 m"},
		{0.9994, "999 m"},
		{1, "1.0 km"},
		{3.24, "3.2 km"},
		{57.4, "57 km"},
		{111.319, "111 km"},
	}

	for _, tt := range tests {
		if got := FormatDistance(tt.km); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.km, got, tt.want)
		}
	}
}
