package plugin

import (
	"github.com/skyloc/embedded-client/pkg/beacon"
)

// Cell priority weights, mirroring cell_plugin_basic.c's
// Property_priority_t: a serving (connected) cell outranks any
// unconnected one, and among cells with the same connected state a full
// measurement outranks a neighbor measurement report (NMR).
const (
	cellConnectedWeight = 0x200
	cellNonNMRWeight    = 0x100
)

// cellPriority assigns get_priority's score: connected cells and
// non-NMR cells each add their weight, so a connected non-NMR cell
// always outranks every other combination.
func cellPriority(b *beacon.Beacon) float64 {
	var score float64
	if b.Header.Connected {
		score += cellConnectedWeight
	}
	if !b.Cell.IsNMR() {
		score += cellNonNMRWeight
	}
	return score
}

// cellEqual implements cell_plugin_basic.c's equal(): two cells are
// equivalent only within the same kind, with per-kind id rules and an
// NMR fallback (id5+freq) for the LTE/NBIOT/UMTS/NR family when the
// serving ids are unknown.
func cellEqual(ctx RequestContext, a, b *beacon.Beacon) (Result, bool, beacon.Property) {
	if a.Header.Type != b.Header.Type || !a.Header.Type.IsCell() || !b.Header.Type.IsCell() {
		return ResultError, false, beacon.Property{}
	}

	equivalent := false
	switch a.Header.Type {
	case beacon.KindCDMA:
		if a.Cell.ID2 == b.Cell.ID2 && a.Cell.ID3 == b.Cell.ID3 && a.Cell.ID4 == b.Cell.ID4 {
			if a.Cell.ID2 != beacon.UnknownID && a.Cell.ID3 != beacon.UnknownID && a.Cell.ID4 != beacon.UnknownID {
				equivalent = true
			}
		}
	case beacon.KindGSM:
		if a.Cell.ID1 == b.Cell.ID1 && a.Cell.ID2 == b.Cell.ID2 &&
			a.Cell.ID3 == b.Cell.ID3 && a.Cell.ID4 == b.Cell.ID4 {
			if a.Cell.ID1 != beacon.UnknownID && a.Cell.ID2 != beacon.UnknownID &&
				a.Cell.ID3 != beacon.UnknownID && a.Cell.ID4 != beacon.UnknownID {
				equivalent = true
			}
		}
	case beacon.KindLTE, beacon.KindNBIoT, beacon.KindUMTS, beacon.KindNR:
		if a.Cell.ID1 == b.Cell.ID1 && a.Cell.ID2 == b.Cell.ID2 && a.Cell.ID4 == b.Cell.ID4 {
			if a.Cell.ID1 == beacon.UnknownID || a.Cell.ID2 == beacon.UnknownID || a.Cell.ID4 == beacon.UnknownID {
				if a.Cell.ID5 == b.Cell.ID5 && a.Cell.Freq == b.Cell.Freq {
					equivalent = true
				}
			} else {
				equivalent = true
			}
		}
	}

	// Cells carry no in_cache/used property of their own (that tracking
	// only exists for APs); nothing to merge.
	return ResultSuccess, equivalent, beacon.Property{}
}

// cellCompare orders two cells for insertion: priority first (computed
// lazily and cached on the beacon the first time it's needed), then the
// shared age/type/RSSI/connected cascade, then lowest id4 wins.
func cellCompare(ctx RequestContext, a, b *beacon.Beacon) (Result, int) {
	if !a.Header.Type.IsCell() || !b.Header.Type.IsCell() {
		return ResultError, 0
	}
	if a.Header.Priority == 0 {
		a.Header.Priority = cellPriority(a)
	}
	if b.Header.Priority == 0 {
		b.Header.Priority = cellPriority(b)
	}
	return ResultSuccess, beacon.Cascade(a, b, beacon.CellIDTiebreak)
}

// cellRemoveWorst drops the lowest-priority cell, which insertion order
// guarantees is the last beacon once the cell section of the request
// context is full, per cell_plugin_basic.c's remove_worst.
func cellRemoveWorst(ctx RequestContext) Result {
	beacons := ctx.Beacons()
	n := len(beacons)
	if n == 0 || !beacons[n-1].Header.Type.IsCell() {
		return ResultError
	}
	if _, err := ctx.RemoveAt(n - 1); err != nil {
		return ResultError
	}
	return ResultSuccess
}

// cellCacheMatch scores every cacheline by exact cell match: 1.0 if
// every cell beacon in the request is present in the cacheline, else
// 0.0 (no partial credit, unlike the Wi-Fi Jaccard score), per
// cell_plugin_basic.c's match().
func cellCacheMatch(ctx RequestContext) Result {
	numAP := ctx.NumAP()
	beacons := ctx.Beacons()
	cellBeacons := beacons[numAP:]
	if len(cellBeacons) == 0 {
		return ResultError
	}

	allPercent, _ := ctx.CacheMatchPercents()
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

		matched := 0
		for _, cb := range cellBeacons {
			if cellInLine(cb, line) {
				matched++
			}
		}
		ratio := 0.0
		if matched == len(cellBeacons) {
			ratio = 1.0
		}

		if ratio > bestPutScore {
			bestPut, bestPutScore = i, ratio
		}
		if ratio > bestScore {
			bestIdx, bestScore = i, ratio
		}
	}

	hit := bestScore*100 > float64(allPercent)
	ctx.SetCacheResult(bestIdx, bestPut, hit)
	return ResultSuccess
}

// cellInLine reports whether cacheline ln contains a cell beacon
// equivalent to cb, using the same per-kind rules as cellEqual.
func cellInLine(cb *beacon.Beacon, ln CacheLine) bool {
	for _, other := range ln.Beacons {
		if !other.Header.Type.IsCell() {
			continue
		}
		if res, eq, _ := cellEqual(nil, cb, other); res == ResultSuccess && eq {
			return true
		}
	}
	return false
}

// CellTable is the cellular beacon plugin: equal/compare/remove_worst/
// cache_match for GSM/UMTS/LTE/NB-IoT/CDMA/NR. It never implements
// add_to_cache. No plugin table writes cachelines: pkg/request's
// DecodeResponse stores the whole request context, cells included,
// itself.
var CellTable = &Table{
	Name:        "cell_basic",
	Magic:       Magic,
	Equal:       cellEqual,
	Compare:     cellCompare,
	RemoveWorst: cellRemoveWorst,
	CacheMatch:  cellCacheMatch,
}
