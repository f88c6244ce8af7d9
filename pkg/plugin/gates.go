package plugin

import (
	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/geoscore"
)

// movedAccuracyFactor is the multiple of the larger fix's HPE beyond
// which a device is considered to have moved significantly, per
// pkg/geoscore's movement heuristic.
const movedAccuracyFactor = 2.0

// gnssWorse reports whether a cacheline's GNSS is worse than
// the context's: true iff both have a finite fix and the context's HPE is
// strictly better (lower) than the cacheline's, OR the device has
// plausibly moved beyond the fixes' combined measurement noise. The
// latter supplements the literal HPE-only rule with geoscore's
// movement-aware distance check, covering the case where the new fix
// is no more precise but the device is demonstrably somewhere else.
func gnssWorse(ctx RequestContext, line CacheLine) bool {
	reqGNSS := ctx.GNSS()
	if !reqGNSS.HasFix() || !line.GNSS.HasFix() {
		return false
	}
	if reqGNSS.HPE < line.GNSS.HPE {
		return true
	}
	return geoscore.MovedSignificantly(reqGNSS, line.GNSS, movedAccuracyFactor)
}

// servingCellChanged reports whether the serving cell has changed: true
// when the context has a connected cell, the cacheline has at least
// one cell, and none of the cacheline's cells equal the context's
// connected cell.
func servingCellChanged(ctx RequestContext, line CacheLine) bool {
	beacons := ctx.Beacons()
	numAP := ctx.NumAP()

	var connected *beacon.Beacon
	for _, b := range beacons[numAP:] {
		if b.Header.Connected {
			connected = b
			break
		}
	}
	if connected == nil {
		return false
	}

	lineHasCell := false
	for _, b := range line.Beacons {
		if b.Header.Type.IsCell() {
			lineHasCell = true
			if res, eq, _ := cellEqual(ctx, connected, b); res == ResultSuccess && eq {
				return false
			}
		}
	}
	return lineHasCell
}

// skipLine reports whether a cacheline should be excluded from
// cache-match scoring entirely.
func skipLine(ctx RequestContext, line CacheLine) bool {
	return gnssWorse(ctx, line) || servingCellChanged(ctx, line)
}
