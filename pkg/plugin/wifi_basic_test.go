package plugin

import (
	"testing"

	"github.com/skyloc/embedded-client/pkg/beacon"
)

func TestApRemoveWorstNoAPsIsError(t *testing.T) {
	ctx := &fakeCtx{numAP: 0}
	if got := apRemoveWorst(ctx); got != ResultError {
		t.Errorf("apRemoveWorst with no APs = %v, want ResultError", got)
	}
}

func TestTinyRangeVictimBisectsFromMiddle(t *testing.T) {
	beacons := []*beacon.Beacon{
		ap(1, 2412, -60, false),
		ap(2, 2412, -60, false),
		ap(3, 2412, -60, false),
	}
	// bandRange of 0 is well under the 0.5 dBm/slot threshold.
	if v := tinyRangeVictim(beacons, 0); v != 1 {
		t.Errorf("tinyRangeVictim with a flat cluster = %d, want the middle index 1", v)
	}
}

func TestTinyRangeVictimSkipsConnectedAndCached(t *testing.T) {
	mid := ap(2, 2412, -60, false)
	mid.Header.Connected = true
	mid.AP.Prop.InCache = true
	beacons := []*beacon.Beacon{
		ap(1, 2412, -60, false),
		mid,
		ap(3, 2412, -60, false),
	}
	if v := tinyRangeVictim(beacons, 0); v == 1 {
		t.Error("tinyRangeVictim should skip a connected, cached middle beacon in favor of a neutral neighbor")
	}
}

func TestWeakOutlierVictimPicksWeakestUncachedDisconnected(t *testing.T) {
	strong := ap(1, 2412, -40, false)
	weakCached := ap(2, 2412, -90, false)
	weakCached.AP.Prop.InCache = true
	weakPlain := ap(3, 2412, -90, false)

	beacons := []*beacon.Beacon{strong, weakCached, weakPlain}
	if v := weakOutlierVictim(beacons); v != 2 {
		t.Errorf("weakOutlierVictim = %d, want 2 (the uncached, disconnected weakest)", v)
	}
}

func TestPoorestFitVictimPicksLargestDeviation(t *testing.T) {
	// Linear from -40 to -100 across 5 slots is an ideal band of -15/slot;
	// slot 2 sitting at -40 instead of -70 is the worst interior outlier.
	beacons := []*beacon.Beacon{
		ap(1, 2412, -40, false),
		ap(2, 2412, -55, false),
		ap(3, 2412, -40, false),
		ap(4, 2412, -85, false),
		ap(5, 2412, -100, false),
	}
	v := poorestFitVictim(beacons, -40, -100)
	if v != 2 {
		t.Errorf("poorestFitVictim = %d, want 2 (largest deviation from ideal)", v)
	}
}

func TestCompressVirtualGroupsMergesSimilarPair(t *testing.T) {
	parent := ap(0x10, 2412, -60, false)
	child := ap(0x12, 2412, -70, false) // differs by one nibble, same freq
	ctx := &fakeCtx{
		beacons: []*beacon.Beacon{parent, child},
		numAP:   2,
		maxVAP:  beacon.MaxVAPPerAP,
	}

	removed := compressVirtualGroups(ctx)
	if removed != 1 {
		t.Fatalf("compressVirtualGroups removed %d beacons, want 1", removed)
	}
	if len(ctx.beacons) != 1 {
		t.Fatalf("expected one beacon left after compression, got %d", len(ctx.beacons))
	}
	if len(ctx.beacons[0].AP.VAP) != 1 {
		t.Errorf("surviving parent should carry one VAP patch, got %d", len(ctx.beacons[0].AP.VAP))
	}
}

func TestCompressVirtualGroupsLeavesDissimilarAPsAlone(t *testing.T) {
	a := ap(0x10, 2412, -60, false)
	b := ap(0x20, 5180, -70, false) // different freq, not similar
	ctx := &fakeCtx{
		beacons: []*beacon.Beacon{a, b},
		numAP:   2,
		maxVAP:  beacon.MaxVAPPerAP,
	}
	if removed := compressVirtualGroups(ctx); removed != 0 {
		t.Errorf("compressVirtualGroups removed %d beacons for dissimilar APs, want 0", removed)
	}
}
