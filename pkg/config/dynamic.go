// Package config holds the two configuration surfaces the core uses:
// Dynamic, the server-tunable parameters, and a YAML-backed Bootstrap
// config for the ambient/host side (sample client credentials, server
// endpoint).
package config

import "time"

// Compile-time caps. A server override outside these bounds is
// dropped, never clamped.
const (
	MaxTotalBeacons  = 32
	MaxAPBeaconsCap  = 32
	MaxVAPPerAPCap   = 16
	MaxVAPPerRqCap   = 64
	MinPercent       = 1
	MaxPercent       = 100
	MaxCacheAgeHours = 168 // one week
	MinNegRSSI       = 1
	MaxNegRSSI       = 127
)

// Dynamic is the set of parameters the remote service may push updates
// to.
type Dynamic struct {
	TotalBeacons          uint32
	MaxAPBeacons          uint32
	CacheMatchAllPercent  uint32 // percent
	CacheMatchUsedPercent uint32 // percent
	CacheBeaconThreshold  uint32 // beacon-count threshold; range-checked and persisted, not read by the cache-match ops
	CacheAgeThresholdHr   uint32
	CacheNegRSSIThreshold uint32 // dBm magnitude, e.g. 90 means -90dBm
	MaxVAPPerAP           uint32
	MaxVAPPerRq           uint32
	LastConfigTime        time.Time
}

// DefaultDynamic mirrors libel/config.h's compiled-in defaults.
func DefaultDynamic() Dynamic {
	return Dynamic{
		TotalBeacons:          11,
		MaxAPBeacons:          10,
		CacheMatchAllPercent:  100,
		CacheMatchUsedPercent: 70,
		CacheBeaconThreshold:  3,
		CacheAgeThresholdHr:   24,
		CacheNegRSSIThreshold: 90,
		MaxVAPPerAP:           16,
		MaxVAPPerRq:           64,
	}
}

// Override is one server-pushed parameter. Only non-nil fields are
// considered for application; each is range-checked independently so a
// single out-of-range field does not block the others.
type Override struct {
	TotalBeacons          *uint32
	MaxAPBeacons          *uint32
	CacheMatchAllPercent  *uint32
	CacheMatchUsedPercent *uint32
	CacheBeaconThreshold  *uint32
	CacheAgeThresholdHr   *uint32
	CacheNegRSSIThreshold *uint32
	MaxVAPPerAP           *uint32
	MaxVAPPerRq           *uint32
}

// Apply range-checks and applies each present override field, dropping
// (not clamping) any that fail its bound. Returns the number of fields
// actually applied.
func (d *Dynamic) Apply(o Override, at time.Time) int {
	applied := 0
	set := func(ok bool, dst *uint32, v uint32) {
		if ok {
			*dst = v
			applied++
		}
	}
	if o.TotalBeacons != nil {
		set(*o.TotalBeacons > 0 && *o.TotalBeacons <= MaxTotalBeacons, &d.TotalBeacons, *o.TotalBeacons)
	}
	if o.MaxAPBeacons != nil {
		set(*o.MaxAPBeacons > 0 && *o.MaxAPBeacons <= MaxAPBeaconsCap, &d.MaxAPBeacons, *o.MaxAPBeacons)
	}
	if o.CacheMatchAllPercent != nil {
		set(inPercent(*o.CacheMatchAllPercent), &d.CacheMatchAllPercent, *o.CacheMatchAllPercent)
	}
	if o.CacheMatchUsedPercent != nil {
		set(inPercent(*o.CacheMatchUsedPercent), &d.CacheMatchUsedPercent, *o.CacheMatchUsedPercent)
	}
	if o.CacheBeaconThreshold != nil {
		set(*o.CacheBeaconThreshold <= MaxTotalBeacons, &d.CacheBeaconThreshold, *o.CacheBeaconThreshold)
	}
	if o.CacheAgeThresholdHr != nil {
		set(*o.CacheAgeThresholdHr > 0 && *o.CacheAgeThresholdHr <= MaxCacheAgeHours, &d.CacheAgeThresholdHr, *o.CacheAgeThresholdHr)
	}
	if o.CacheNegRSSIThreshold != nil {
		set(*o.CacheNegRSSIThreshold >= MinNegRSSI && *o.CacheNegRSSIThreshold <= MaxNegRSSI, &d.CacheNegRSSIThreshold, *o.CacheNegRSSIThreshold)
	}
	if o.MaxVAPPerAP != nil {
		set(*o.MaxVAPPerAP > 0 && *o.MaxVAPPerAP <= MaxVAPPerAPCap, &d.MaxVAPPerAP, *o.MaxVAPPerAP)
	}
	if o.MaxVAPPerRq != nil {
		set(*o.MaxVAPPerRq > 0 && *o.MaxVAPPerRq <= MaxVAPPerRqCap, &d.MaxVAPPerRq, *o.MaxVAPPerRq)
	}
	if applied > 0 {
		d.LastConfigTime = at
	}
	return applied
}

func inPercent(v uint32) bool {
	return v >= MinPercent && v <= MaxPercent
}

// Validate reports whether the struct currently satisfies the cross-field
// invariants (max_ap_beacons <= total_beacons, percentages in range).
// Used when restoring a persisted session state; SetOption does not call
// it.
func (d Dynamic) Validate() bool {
	if d.MaxAPBeacons == 0 || d.MaxAPBeacons > d.TotalBeacons || d.TotalBeacons > MaxTotalBeacons {
		return false
	}
	if !inPercent(d.CacheMatchAllPercent) || !inPercent(d.CacheMatchUsedPercent) {
		return false
	}
	return true
}
