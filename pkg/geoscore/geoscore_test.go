package geoscore

import (
	"math"
	"testing"

	"github.com/skyloc/embedded-client/pkg/beacon"
)

func TestDistanceMetersZeroForIdenticalFix(t *testing.T) {
	a := beacon.GNSS{Lat: 37.7749, Lon: -122.4194}
	if d := DistanceMeters(a, a); d != 0 {
		t.Errorf("DistanceMeters(a, a) = %v, want 0", d)
	}
}

func TestDistanceMetersApproximatelyCorrect(t *testing.T) {
	// San Francisco to Los Angeles is roughly 560km.
	sf := beacon.GNSS{Lat: 37.7749, Lon: -122.4194}
	la := beacon.GNSS{Lat: 34.0522, Lon: -118.2437}
	d := DistanceMeters(sf, la)
	const want = 559000.0
	if math.Abs(d-want) > 20000 {
		t.Errorf("DistanceMeters(sf, la) = %v, want approximately %v", d, want)
	}
}

func TestMovedSignificantlyRequiresBothFixes(t *testing.T) {
	fix := beacon.GNSS{Lat: 1, Lon: 1, HPE: 10}
	unknown := beacon.UnknownGNSS()
	if MovedSignificantly(unknown, fix, 2.0) {
		t.Error("no request fix should never report movement")
	}
	if MovedSignificantly(fix, unknown, 2.0) {
		t.Error("no cached fix should never report movement")
	}
}

func TestMovedSignificantlyFalseWithinNoise(t *testing.T) {
	a := beacon.GNSS{Lat: 37.7749, Lon: -122.4194, HPE: 50}
	b := beacon.GNSS{Lat: 37.77491, Lon: -122.41941, HPE: 50} // a few meters away
	if MovedSignificantly(a, b, 2.0) {
		t.Error("a few meters of drift should be within 2x a 50m HPE")
	}
}

func TestMovedSignificantlyTrueBeyondNoise(t *testing.T) {
	a := beacon.GNSS{Lat: 37.7749, Lon: -122.4194, HPE: 10}
	b := beacon.GNSS{Lat: 34.0522, Lon: -118.2437, HPE: 10} // SF vs LA
	if !MovedSignificantly(a, b, 2.0) {
		t.Error("SF-to-LA distance should dwarf a 10m HPE budget")
	}
}

func TestMovedSignificantlyZeroHPEFloorsToOneMeter(t *testing.T) {
	a := beacon.GNSS{Lat: 37.7749, Lon: -122.4194, HPE: 0}
	b := beacon.GNSS{Lat: 37.7750, Lon: -122.4194, HPE: 0} // ~11m north
	if !MovedSignificantly(a, b, 2.0) {
		t.Error("with HPE floored to 1m, an 11m shift should exceed a 2x budget")
	}
}
