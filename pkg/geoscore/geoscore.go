// Package geoscore supplements the HPE-only GNSS gate with a
// movement-aware distance check, built on github.com/golang/geo's s2
// package for great-circle distance.
package geoscore

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/skyloc/embedded-client/pkg/beacon"
)

// DistanceMeters returns the great-circle distance between two fixes.
func DistanceMeters(a, b beacon.GNSS) float64 {
	const earthRadiusMeters = 6371000.0
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadiusMeters
}

// MovedSignificantly reports whether the request's GNSS fix differs from
// the cacheline's recorded fix by more than a multiple of the larger of
// the two HPEs — i.e. the device has plausibly changed location beyond
// measurement noise. Both fixes must be present; if either is missing
// this returns false (no opinion), leaving the decision to the
// HPE-only gate.
func MovedSignificantly(request, cached beacon.GNSS, accuracyFactor float64) bool {
	if !request.HasFix() || !cached.HasFix() {
		return false
	}
	dist := DistanceMeters(request, cached)
	hpe := math.Max(float64(request.HPE), float64(cached.HPE))
	if hpe <= 0 {
		hpe = 1
	}
	return dist > hpe*accuracyFactor
}
