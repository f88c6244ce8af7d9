package beacon

import "math"

// GNSS is one satellite-derived fix.
type GNSS struct {
	Lat, Lon float64
	HPE      uint32
	Alt      float64
	VPE      uint32
	Speed    float64
	Bearing  float64
	NSat     uint32
	Age      uint32
}

// UnknownGNSS returns a GNSS fix with lat set to NaN, the has_gnss() sentinel
// for "no fix recorded", matching new_request's initialization.
func UnknownGNSS() GNSS {
	return GNSS{Lat: math.NaN()}
}

// HasFix reports whether g carries an actual fix.
func (g GNSS) HasFix() bool {
	return !math.IsNaN(g.Lat)
}
