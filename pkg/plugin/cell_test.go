package plugin

import (
	"testing"

	"github.com/skyloc/embedded-client/pkg/beacon"
)

func gsmCell(id4 int64, rssi int16, connected bool) *beacon.Beacon {
	return beacon.NewCell(beacon.KindGSM, beacon.Cell{ID1: 1, ID2: 2, ID3: 3, ID4: id4}, rssi, connected)
}

func TestCellPriorityConnectedNonNMROutranks(t *testing.T) {
	connected := gsmCell(4, -90, true)
	neighbor := gsmCell(5, -40, false)
	res, diff := cellCompare(nil, connected, neighbor)
	if res != ResultSuccess || diff <= 0 {
		t.Errorf("a connected cell should outrank a stronger neighbor regardless of RSSI, got (%v, %d)", res, diff)
	}
}

func TestCellPriorityNMRLosesToFullMeasurement(t *testing.T) {
	full := gsmCell(4, -90, false)
	nmr := beacon.NewCell(beacon.KindGSM, beacon.Cell{ID1: 1, ID2: beacon.UnknownID, ID3: 3, ID4: 5}, -40, false)
	res, diff := cellCompare(nil, full, nmr)
	if res != ResultSuccess || diff <= 0 {
		t.Errorf("a full measurement should outrank an NMR regardless of RSSI, got (%v, %d)", res, diff)
	}
}

func TestCellRemoveWorstRequiresTrailingCell(t *testing.T) {
	ctx := &fakeCtx{
		beacons: []*beacon.Beacon{ap(1, 2412, -60, false)},
		numAP:   1,
	}
	if got := cellRemoveWorst(ctx); got != ResultError {
		t.Errorf("cellRemoveWorst with no trailing cell = %v, want ResultError", got)
	}
}

func TestCellRemoveWorstDropsLastBeacon(t *testing.T) {
	cell := gsmCell(4, -90, false)
	ctx := &fakeCtx{
		beacons: []*beacon.Beacon{ap(1, 2412, -60, false), cell},
		numAP:   1,
	}
	if got := cellRemoveWorst(ctx); got != ResultSuccess {
		t.Fatalf("cellRemoveWorst = %v, want ResultSuccess", got)
	}
	if len(ctx.beacons) != 1 {
		t.Errorf("expected the trailing cell to be removed, %d beacons remain", len(ctx.beacons))
	}
}

func TestCellCacheMatchNoCellBeaconsIsError(t *testing.T) {
	ctx := &fakeCtx{
		beacons: []*beacon.Beacon{ap(1, 2412, -60, false)},
		numAP:   1,
	}
	if got := cellCacheMatch(ctx); got != ResultError {
		t.Errorf("cellCacheMatch with no cell beacons = %v, want ResultError", got)
	}
}

func TestCellCacheMatchExactMatchIsHit(t *testing.T) {
	cell := gsmCell(4, -90, true)
	ctx := &fakeCtx{
		beacons: []*beacon.Beacon{cell},
		numAP:   0,
		cache: fakeCache{lines: []CacheLine{
			{Beacons: []*beacon.Beacon{gsmCell(4, -90, true)}},
		}},
	}
	if got := cellCacheMatch(ctx); got != ResultSuccess {
		t.Fatalf("cellCacheMatch = %v, want ResultSuccess", got)
	}
	if !ctx.gotHit {
		t.Error("an exact cell match should register as a cache hit")
	}
}

func TestCellCacheMatchNoOverlapIsMiss(t *testing.T) {
	cell := gsmCell(4, -90, true)
	ctx := &fakeCtx{
		beacons: []*beacon.Beacon{cell},
		numAP:   0,
		cache: fakeCache{lines: []CacheLine{
			{Beacons: []*beacon.Beacon{gsmCell(9, -90, true)}},
		}},
	}
	if got := cellCacheMatch(ctx); got != ResultSuccess {
		t.Fatalf("cellCacheMatch = %v, want ResultSuccess", got)
	}
	if ctx.gotHit {
		t.Error("a cacheline with no matching cell should not register as a hit")
	}
}
