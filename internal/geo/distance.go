package geo

import (
	"fmt"
	"math"
)

// WGS-84 ellipsoid
const (
	semiMajorAxis = 6378137.0         // a, meters
	semiMinorAxis = 6356752.314245    // b, meters
	flattening    = 1 / 298.257223563 // f
)

// EarthRadiusKm is the mean sphere radius used by the Haversine fallback.
const EarthRadiusKm = 6371.0

const (
	convergenceTolerance = 1e-12
	maxIterations        = 100
)

// Distance returns the geodesic distance in kilometers between two points
// given in degrees. It solves the inverse problem on the WGS-84 ellipsoid
// (Vincenty) and falls back to Haversine when the iteration does not converge,
// so the result is always finite for finite input.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	km, _ := Inverse(lat1, lon1, lat2, lon2)
	return km
}

// Between is Inverse for two Coordinates.
func Between(a, b Coordinate) (km float64, converged bool) {
	return Inverse(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Inverse is Distance that also reports whether the ellipsoidal solution
// converged. converged is false when the Haversine fallback produced km.
func Inverse(lat1, lon1, lat2, lon2 float64) (km float64, converged bool) {
	// Solve in a canonical point order so Distance(a, b) == Distance(b, a) exactly.
	if lat2 < lat1 || (lat2 == lat1 && lon2 < lon1) {
		lat1, lon1, lat2, lon2 = lat2, lon2, lat1, lon1
	}

	meters, ok := vincenty(lat1, lon1, lat2, lon2)
	if !ok || math.IsNaN(meters) || math.IsInf(meters, 0) || meters < 0 {
		return Haversine(lat1, lon1, lat2, lon2), false
	}
	return meters / 1000, true
}

func vincenty(lat1, lon1, lat2, lon2 float64) (float64, bool) {
	const a, b, f = semiMajorAxis, semiMinorAxis, flattening

	L := toRadians(lon2 - lon1)
	U1 := math.Atan((1 - f) * math.Tan(toRadians(lat1)))
	U2 := math.Atan((1 - f) * math.Tan(toRadians(lat2)))
	sinU1, cosU1 := math.Sincos(U1)
	sinU2, cosU2 := math.Sincos(U2)

	lambda := L
	for i := 0; i < maxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)

		sinSigma := math.Sqrt(
			(cosU2*sinLambda)*(cosU2*sinLambda) +
				(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda),
		)
		if sinSigma == 0 {
			// coincident points
			return 0, true
		}

		cosSigma := sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma := math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha := 1 - sinAlpha*sinAlpha

		cos2SigmaM := cosSigma - 2*sinU1*sinU2/cosSqAlpha
		if math.IsNaN(cos2SigmaM) {
			// equatorial line: cosSqAlpha == 0
			cos2SigmaM = 0
		}

		C := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		prev := lambda
		lambda = L + (1-C)*f*sinAlpha*
			(sigma+C*sinSigma*(cos2SigmaM+C*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-prev) < convergenceTolerance {
			uSq := cosSqAlpha * (a*a - b*b) / (b * b)
			A := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
			B := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
			deltaSigma := B * sinSigma * (cos2SigmaM + B/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
				B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
			return b * A * (sigma - deltaSigma), true
		}
	}

	return 0, false
}

// Haversine returns the great-circle distance in kilometers between two
// points on a sphere of radius EarthRadiusKm.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := toRadians(lat1)
	lat2r := toRadians(lat2)
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h just past 1 for antipodal points
	h = math.Min(math.Max(h, 0), 1)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// FormatDistance renders a distance for result labels: meters below 1 km,
// one decimal below 10 km, whole kilometers beyond.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	case km < 10:
		return fmt.Sprintf("%.1f km", km)
	default:
		return fmt.Sprintf("%d km", int(math.Round(km)))
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
