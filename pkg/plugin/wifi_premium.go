package plugin

import (
	"github.com/skyloc/embedded-client/pkg/beacon"
)

// similarAPs reports whether a and b differ by exactly one MAC nibble,
// agree on the locally-administered bit of their first octet, and
// share a frequency.
func similarAPs(a, b *beacon.Beacon) (nibbleIndex uint8, nibbleValue uint8, ok bool) {
	if a.AP.Freq != b.AP.Freq {
		return 0, 0, false
	}
	if beacon.LocallyAdministered(a.AP.MAC[0]) != beacon.LocallyAdministered(b.AP.MAC[0]) {
		return 0, 0, false
	}
	diffs := 0
	for i := uint8(0); i < 12; i++ {
		an, bn := beacon.Nibble(a.AP.MAC, i), beacon.Nibble(b.AP.MAC, i)
		if an != bn {
			diffs++
			nibbleIndex, nibbleValue = i, bn
			if diffs > 1 {
				return 0, 0, false
			}
		}
	}
	if diffs != 1 {
		return 0, 0, false
	}
	return nibbleIndex, nibbleValue, true
}

// weightedAverageRSSI folds child into parent's effective RSSI,
// weighting the parent by parentWeight (its group size, 1 for a beacon
// with no children yet) and the child as a single beacon; the child's
// own group size is not counted. A child with unknown RSSI does not move
// the average.
func weightedAverageRSSI(parentRSSI int16, parentWeight int, childRSSI int16, childUnknown bool) int16 {
	if childUnknown {
		return parentRSSI
	}
	total := parentWeight + 1
	sum := int(parentRSSI)*parentWeight + int(childRSSI)
	return int16(sum / total)
}

// compressVirtualGroups runs the premium pass over ctx's APs: merge
// each similar pair into parent+patch, then merge similar parents
// together. It mutates the beacon slice in place via ctx.RemoveAt and
// returns the number of APs removed.
func compressVirtualGroups(ctx RequestContext) int {
	removed := 0
	maxVAP := ctx.MaxVAPPerAP()

restart:
	beacons := ctx.Beacons()[:ctx.NumAP()]
	for i := 0; i < len(beacons); i++ {
		for j := 0; j < len(beacons); j++ {
			if i == j {
				continue
			}
			parent, child := beacons[i], beacons[j]
			if beacon.MACCompare(parent.AP.MAC, child.AP.MAC) < 0 {
				// parent must have the numerically lower MAC
				continue
			}
			idx, val, ok := similarAPs(parent, child)
			if !ok {
				continue
			}
			if len(parent.AP.VAP) >= maxVAP {
				continue
			}
			mergeChildIntoParent(parent, child, idx, val)
			childPos := j
			if _, err := ctx.RemoveAt(childPos); err != nil {
				continue
			}
			removed++
			goto restart
		}
	}

	// Merge parent groups that are themselves similar: transfer every
	// patch of the second parent that isn't already present.
	beacons = ctx.Beacons()[:ctx.NumAP()]
	for i := 0; i < len(beacons); i++ {
		for j := i + 1; j < len(beacons); j++ {
			p1, p2 := beacons[i], beacons[j]
			if _, _, ok := similarAPs(p1, p2); !ok {
				continue
			}
			mergeParentGroups(p1, p2)
		}
	}

	return removed
}

func mergeChildIntoParent(parent, child *beacon.Beacon, idx, val uint8) {
	childUnknown := child.Header.RSSI == beacon.RSSIUnknown
	if parent.Header.RSSI != beacon.RSSIUnknown {
		parent.Header.RSSI = weightedAverageRSSI(parent.Header.RSSI, len(parent.AP.VAP)+1, child.Header.RSSI, childUnknown)
	}
	parent.AP.VAP = append(parent.AP.VAP, beacon.VAPPatch{Index: idx, Value: val})
	parent.AP.VAPProp = append(parent.AP.VAPProp, child.AP.Prop)
}

func mergeParentGroups(p1, p2 *beacon.Beacon) {
	have := make(map[beacon.VAPPatch]bool, len(p1.AP.VAP))
	for _, p := range p1.AP.VAP {
		have[p] = true
	}
	for i, p := range p2.AP.VAP {
		if have[p] {
			continue
		}
		p1.AP.VAP = append(p1.AP.VAP, p)
		if i < len(p2.AP.VAPProp) {
			p1.AP.VAPProp = append(p1.AP.VAPProp, p2.AP.VAPProp[i])
		} else {
			p1.AP.VAPProp = append(p1.AP.VAPProp, beacon.Property{})
		}
		have[p] = true
	}
}

// premiumRemoveWorst compresses virtual groups first; if that alone
// brings the AP count back within budget it's done, else it falls
// through to the basic RSSI-distribution eviction.
func premiumRemoveWorst(ctx RequestContext) Result {
	if compressVirtualGroups(ctx) > 0 {
		return ResultSuccess
	}
	return apRemoveWorst(ctx)
}

// PremiumWiFiTable adds virtual-group compression ahead of the basic
// plugin's RSSI-distribution eviction. equal/compare/cache_match are
// unchanged from the basic plugin: virtual-group membership is already
// folded into apEqual via the VAP patch list.
var PremiumWiFiTable = &Table{
	Name:        "ap_premium",
	Magic:       Magic,
	Equal:       apEqual,
	Compare:     apCompare,
	RemoveWorst: premiumRemoveWorst,
	CacheMatch:  apCacheMatch,
	AddToCache:  apAddToCache,
}
