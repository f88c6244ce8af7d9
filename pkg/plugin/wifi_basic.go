package plugin

import (
	"math"

	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/location"
)

// apEqual reports two APs equivalent when their MACs match exactly, or
// when b is a virtual-group sibling of a (differs by the patched
// nibble recorded in one of a's VAP entries). The winning retained
// beacon's merged property is the OR of both sides' in_cache/used
// bits.
func apEqual(ctx RequestContext, a, b *beacon.Beacon) (Result, bool, beacon.Property) {
	if a.Header.Type != beacon.KindAP || b.Header.Type != beacon.KindAP {
		return ResultError, false, beacon.Property{}
	}
	merged := beacon.Property{
		InCache: a.AP.Prop.InCache || b.AP.Prop.InCache,
		Used:    a.AP.Prop.Used || b.AP.Prop.Used,
	}
	if a.AP.MAC == b.AP.MAC {
		return ResultSuccess, true, merged
	}
	for _, p := range a.AP.VAP {
		if beacon.SetNibble(a.AP.MAC, p.Index, p.Value) == b.AP.MAC {
			return ResultSuccess, true, merged
		}
	}
	return ResultSuccess, false, merged
}

// apCompare orders two APs by the shared comparator cascade. AP
// priority is not adjusted here, and neither Wi-Fi plugin assigns one,
// so Header.Priority stays at its insertion-time value of 0.
func apCompare(ctx RequestContext, a, b *beacon.Beacon) (Result, int) {
	if a.Header.Type != beacon.KindAP || b.Header.Type != beacon.KindAP {
		return ResultError, 0
	}
	return ResultSuccess, beacon.Cascade(a, b, beacon.MACTiebreak)
}

// idealRSSI returns the linearly-interpolated ideal effective RSSI for
// slot i out of numAP, given the strongest and weakest effective RSSI
// present.
func idealRSSI(i, numAP int, strongest, weakest float64) (ideal, bandRange float64) {
	if numAP <= 1 {
		return strongest, 0
	}
	bandRange = (strongest - weakest) / float64(numAP-1)
	return strongest - float64(i)*bandRange, bandRange
}

// apRemoveWorst implements the three ordered sub-policies for removing
// the worst Wi-Fi AP: tiny range, weak outlier, poorest fit.
func apRemoveWorst(ctx RequestContext) Result {
	numAP := ctx.NumAP()
	if numAP == 0 {
		return ResultError
	}
	beacons := ctx.Beacons()[:numAP]

	strongest := float64(beacons[0].Header.EffectiveRSSI())
	weakest := strongest
	for _, b := range beacons {
		r := float64(b.Header.EffectiveRSSI())
		if r > strongest {
			strongest = r
		}
		if r < weakest {
			weakest = r
		}
	}
	_, bandRange := idealRSSI(0, numAP, strongest, weakest)

	if victim := tinyRangeVictim(beacons, bandRange); victim >= 0 {
		return removeAt(ctx, victim)
	}

	negThreshold := float64(ctx.CacheNegRSSIThreshold())
	if weakest < -negThreshold {
		if victim := weakOutlierVictim(beacons); victim >= 0 {
			return removeAt(ctx, victim)
		}
	}

	if victim := poorestFitVictim(beacons, strongest, weakest); victim >= 0 {
		return removeAt(ctx, victim)
	}

	return ResultError
}

func removeAt(ctx RequestContext, i int) Result {
	if _, err := ctx.RemoveAt(i); err != nil {
		return ResultError
	}
	return ResultSuccess
}

// tinyRangeVictim handles the case where the AP cluster's RSSI spread
// is too tight to mean anything: bisect outward from the middle.
func tinyRangeVictim(beacons []*beacon.Beacon, bandRange float64) int {
	if bandRange >= 0.5 {
		return -1
	}
	mid := len(beacons) / 2
	// Walk outward from the middle, preferring neither connected nor
	// cached, falling back to uncached, falling back to the exact
	// middle.
	if v := bisectPreferring(beacons, mid, func(b *beacon.Beacon) bool {
		return !b.Header.Connected && !b.AP.Prop.InCache
	}); v >= 0 {
		return v
	}
	if v := bisectPreferring(beacons, mid, func(b *beacon.Beacon) bool {
		return !b.AP.Prop.InCache
	}); v >= 0 {
		return v
	}
	return mid
}

// bisectPreferring walks outward from mid (mid, mid-1, mid+1, mid-2, ...)
// returning the first index whose beacon satisfies want.
func bisectPreferring(beacons []*beacon.Beacon, mid int, want func(*beacon.Beacon) bool) int {
	n := len(beacons)
	if mid >= 0 && mid < n && want(beacons[mid]) {
		return mid
	}
	for offset := 1; offset < n; offset++ {
		if lo := mid - offset; lo >= 0 && want(beacons[lo]) {
			return lo
		}
		if hi := mid + offset; hi < n && want(beacons[hi]) {
			return hi
		}
	}
	return -1
}

// weakOutlierVictim drops the weakest AP, preferring one that is
// neither connected nor cached, then one that is merely uncached, then
// the weakest regardless.
func weakOutlierVictim(beacons []*beacon.Beacon) int {
	weakestIdx := 0
	weakest := beacons[0].Header.EffectiveRSSI()
	for i, b := range beacons {
		if b.Header.EffectiveRSSI() < weakest {
			weakest, weakestIdx = b.Header.EffectiveRSSI(), i
		}
	}
	for i, b := range beacons {
		if b.Header.EffectiveRSSI() == weakest && !b.Header.Connected && !b.AP.Prop.InCache {
			return i
		}
	}
	for i, b := range beacons {
		if b.Header.EffectiveRSSI() == weakest && !b.AP.Prop.InCache {
			return i
		}
	}
	return weakestIdx
}

// poorestFitVictim scans the interior [1, n-1) for the beacon whose
// RSSI deviates most from the ideal linear distribution, preferring
// one that is neither in_cache nor connected; falls back by relaxing
// that constraint, then to the weakest/strongest uncached end, then to
// the exact middle.
func poorestFitVictim(beacons []*beacon.Beacon, strongest, weakest float64) int {
	n := len(beacons)
	if n < 2 {
		return -1
	}

	bestIdx, bestDev := -1, -1.0
	bestIdxAny, bestDevAny := -1, -1.0
	for i := 1; i < n-1; i++ {
		ideal, _ := idealRSSI(i, n, strongest, weakest)
		dev := math.Abs(float64(beacons[i].Header.EffectiveRSSI()) - ideal)
		if dev > bestDevAny {
			bestDevAny, bestIdxAny = dev, i
		}
		if beacons[i].AP.Prop.InCache || beacons[i].Header.Connected {
			continue
		}
		if dev > bestDev {
			bestDev, bestIdx = dev, i
		}
	}
	if bestIdx >= 0 {
		return bestIdx
	}
	if bestIdxAny >= 0 {
		return bestIdxAny
	}

	if !beacons[n-1].AP.Prop.InCache {
		return n - 1
	}
	if !beacons[0].AP.Prop.InCache {
		return 0
	}
	return n / 2
}

// apAddToCache reports whether a decoded location may be cached: Failure
// for a non-SUCCESS status, since failures are never cached, Success
// otherwise. It writes nothing. The cacheline write is done by
// pkg/request's DecodeResponse, which holds a writable reference to the
// cache store that this package's read-only CacheView does not expose;
// that path does not call this op.
func apAddToCache(ctx RequestContext, loc location.Location) Result {
	if loc.Status != location.StatusSuccess {
		return ResultFailure
	}
	return ResultSuccess
}

// BasicWiFiTable is the default Wi-Fi plugin: no virtual-group
// compression, RSSI-distribution eviction only.
var BasicWiFiTable = &Table{
	Name:        "ap_basic",
	Magic:       Magic,
	Equal:       apEqual,
	Compare:     apCompare,
	RemoveWorst: apRemoveWorst,
	CacheMatch:  apCacheMatch,
	AddToCache:  apAddToCache,
}

// apCacheMatch scores every cacheline by Jaccard similarity over APs
// (virtual-group siblings count as the same AP): |intersection| /
// (|context APs| + |cacheline APs| − |intersection|). The winner is
// compared against cache_match_used_threshold.
func apCacheMatch(ctx RequestContext) Result {
	numAP := ctx.NumAP()
	if numAP == 0 {
		return ResultError
	}
	reqAPs := ctx.Beacons()[:numAP]

	_, usedPercent := ctx.CacheMatchPercents()
	cache := ctx.Cache()

	bestScore, bestIdx := -1.0, -1
	bestPut, bestPutScore := -1, -1.0
	for i := 0; i < cache.Len(); i++ {
		line := cache.Line(i)
		if line.Empty {
			if bestPutScore < 1.0 {
				bestPut, bestPutScore = i, 1.0
			}
			continue
		}
		if skipLine(ctx, line) {
			continue
		}
		cacheAPs := line.Beacons[:line.NumAP]

		intersection := 0
		for _, a := range reqAPs {
			for _, c := range cacheAPs {
				if res, eq, _ := apEqual(ctx, a, c); res == ResultSuccess && eq {
					intersection++
					break
				}
			}
		}
		union := len(reqAPs) + len(cacheAPs) - intersection
		ratio := 0.0
		if union > 0 {
			ratio = float64(intersection) / float64(union)
		}

		if ratio > bestPutScore {
			bestPut, bestPutScore = i, ratio
		}
		if ratio > bestScore {
			bestIdx, bestScore = i, ratio
		}
	}

	hit := bestScore*100 > float64(usedPercent)
	ctx.SetCacheResult(bestIdx, bestPut, hit)
	return ResultSuccess
}
