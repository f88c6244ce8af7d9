package plugin

import (
	"testing"

	"github.com/skyloc/embedded-client/pkg/beacon"
)

// fakeCtx is a minimal RequestContext stand-in for exercising dispatch and
// gate logic without pulling in pkg/request (which would import this
// package, creating a cycle).
type fakeCtx struct {
	beacons  []*beacon.Beacon
	numAP    int
	gnss     beacon.GNSS
	negThr   int16
	maxVAP   int
	cache    fakeCache
	gotIdx   int
	putIdx   int
	gotHit   bool
}

func (f *fakeCtx) Beacons() []*beacon.Beacon { return f.beacons }
func (f *fakeCtx) NumAP() int                { return f.numAP }
func (f *fakeCtx) SetNumAP(n int)            { f.numAP = n }
func (f *fakeCtx) InsertAt(i int, b *beacon.Beacon) {
	f.beacons = append(f.beacons[:i], append([]*beacon.Beacon{b}, f.beacons[i:]...)...)
}
func (f *fakeCtx) RemoveAt(i int) (*beacon.Beacon, error) {
	b := f.beacons[i]
	f.beacons = append(f.beacons[:i], f.beacons[i+1:]...)
	if i < f.numAP {
		f.numAP--
	}
	return b, nil
}
func (f *fakeCtx) CacheMatchPercents() (uint32, uint32)  { return 50, 50 }
func (f *fakeCtx) CacheNegRSSIThreshold() int16          { return f.negThr }
func (f *fakeCtx) MaxVAPPerAP() int                      { return f.maxVAP }
func (f *fakeCtx) GNSS() beacon.GNSS                     { return f.gnss }
func (f *fakeCtx) Cache() CacheView                      { return f.cache }
func (f *fakeCtx) SetCacheResult(getFrom, saveTo int, hit bool) {
	f.gotIdx, f.putIdx, f.gotHit = getFrom, saveTo, hit
}
func (f *fakeCtx) Logf(format string, args ...interface{}) {}

type fakeCache struct {
	lines []CacheLine
}

func (c fakeCache) Len() int            { return len(c.lines) }
func (c fakeCache) Line(i int) CacheLine { return c.lines[i] }

func ap(last byte, freq uint32, rssi int16, connected bool) *beacon.Beacon {
	mac := [beacon.MACSize]byte{0, 0, 0, 0, 0, last}
	return beacon.NewAP(mac, freq, rssi, connected)
}

func TestChainAddRejectsBadMagic(t *testing.T) {
	c := &Chain{}
	if err := c.Add(&Table{Name: "bogus", Magic: 0x1}); err != ErrCorruptTable {
		t.Errorf("Add with bad magic = %v, want ErrCorruptTable", err)
	}
}

func TestChainAddDuplicateIsSilentSuccess(t *testing.T) {
	c := &Chain{}
	if err := c.Add(BasicWiFiTable); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := c.Add(BasicWiFiTable); err != nil {
		t.Errorf("duplicate Add should succeed silently, got %v", err)
	}
}

func TestChainCompareFirstNonErrorWins(t *testing.T) {
	c := &Chain{}
	_ = c.Add(&Table{
		Name:  "always-error",
		Magic: Magic,
		Compare: func(ctx RequestContext, a, b *beacon.Beacon) (Result, int) {
			return ResultError, 0
		},
	})
	_ = c.Add(BasicWiFiTable)

	a, b := ap(1, 2412, -60, false), ap(2, 2412, -60, false)
	diff, err := c.Compare(nil, a, b)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if diff <= 0 {
		t.Errorf("expected a (lower MAC) to outrank b, got diff=%d", diff)
	}
}

func TestChainCompareNoPluginWhenAllError(t *testing.T) {
	c := &Chain{}
	_ = c.Add(&Table{
		Name:  "always-error",
		Magic: Magic,
		Compare: func(ctx RequestContext, a, b *beacon.Beacon) (Result, int) {
			return ResultError, 0
		},
	})
	_, err := c.Compare(nil, ap(1, 2412, -60, false), ap(2, 2412, -60, false))
	if err != ErrNoPlugin {
		t.Errorf("Compare = %v, want ErrNoPlugin", err)
	}
}

func TestDefaultChainOrder(t *testing.T) {
	c := Default()
	if len(c.tables) != 2 || c.tables[0] != BasicWiFiTable || c.tables[1] != CellTable {
		t.Errorf("Default() chain = %+v, want [BasicWiFiTable, CellTable]", c.tables)
	}
}

func TestApEqualExactMACMatch(t *testing.T) {
	a, b := ap(1, 2412, -60, false), ap(1, 2412, -70, true)
	res, eq, _ := apEqual(nil, a, b)
	if res != ResultSuccess || !eq {
		t.Errorf("apEqual for identical MACs = (%v, %v), want (Success, true)", res, eq)
	}
}

func TestApEqualVirtualSibling(t *testing.T) {
	parent := ap(0x10, 2412, -60, false)
	parent.AP.VAP = []beacon.VAPPatch{{Index: 11, Value: 0x2}}
	child := ap(0x12, 2412, -65, false)

	res, eq, _ := apEqual(nil, parent, child)
	if res != ResultSuccess || !eq {
		t.Errorf("apEqual for a VAP sibling = (%v, %v), want (Success, true)", res, eq)
	}
}

func TestApEqualMergesProperty(t *testing.T) {
	a, b := ap(1, 2412, -60, false), ap(1, 2412, -60, false)
	a.AP.Prop = beacon.Property{InCache: true}
	b.AP.Prop = beacon.Property{Used: true}

	_, _, prop := apEqual(nil, a, b)
	if !prop.InCache || !prop.Used {
		t.Errorf("apEqual should OR in_cache/used, got %+v", prop)
	}
}

func TestApEqualNonMatch(t *testing.T) {
	a, b := ap(1, 2412, -60, false), ap(2, 2412, -60, false)
	res, eq, _ := apEqual(nil, a, b)
	if res != ResultSuccess || eq {
		t.Errorf("apEqual for unrelated MACs = (%v, %v), want (Success, false)", res, eq)
	}
}

func TestApCompareDelegatesToCascade(t *testing.T) {
	a, b := ap(1, 2412, -60, false), ap(2, 2412, -60, false)
	res, diff := apCompare(nil, a, b)
	want := beacon.Cascade(a, b, beacon.MACTiebreak)
	if res != ResultSuccess || diff != want {
		t.Errorf("apCompare = (%v, %d), want (Success, %d)", res, diff, want)
	}
}

func TestCellEqualGSMRequiresAllFourIDs(t *testing.T) {
	a := beacon.NewCell(beacon.KindGSM, beacon.Cell{ID1: 1, ID2: 2, ID3: 3, ID4: 4}, -60, false)
	b := beacon.NewCell(beacon.KindGSM, beacon.Cell{ID1: 1, ID2: 2, ID3: 3, ID4: 4}, -80, true)
	res, eq, _ := cellEqual(nil, a, b)
	if res != ResultSuccess || !eq {
		t.Errorf("cellEqual for matching GSM ids = (%v, %v), want (Success, true)", res, eq)
	}

	c := beacon.NewCell(beacon.KindGSM, beacon.Cell{ID1: 1, ID2: 2, ID3: 3, ID4: beacon.UnknownID}, -60, false)
	res, eq, _ = cellEqual(nil, a, c)
	if res != ResultSuccess || eq {
		t.Errorf("cellEqual with an unknown id should not match, got (%v, %v)", res, eq)
	}
}

func TestCellEqualDifferentKindsIsError(t *testing.T) {
	a := beacon.NewCell(beacon.KindGSM, beacon.Cell{ID1: 1, ID2: 2, ID3: 3, ID4: 4}, -60, false)
	b := beacon.NewCell(beacon.KindLTE, beacon.Cell{ID1: 1, ID2: 2, ID4: 4}, -60, false)
	res, _, _ := cellEqual(nil, a, b)
	if res != ResultError {
		t.Errorf("cellEqual across kinds = %v, want ResultError", res)
	}
}

func TestGnssWorseRequiresBothFixes(t *testing.T) {
	ctx := &fakeCtx{gnss: beacon.UnknownGNSS()}
	line := CacheLine{GNSS: beacon.GNSS{Lat: 1, Lon: 1, HPE: 10}}
	if gnssWorse(ctx, line) {
		t.Error("gnssWorse should be false when the request has no fix")
	}
}

func TestGnssWorseStrictlyBetterHPE(t *testing.T) {
	ctx := &fakeCtx{gnss: beacon.GNSS{Lat: 1, Lon: 1, HPE: 5}}
	line := CacheLine{GNSS: beacon.GNSS{Lat: 1, Lon: 1, HPE: 50}}
	if !gnssWorse(ctx, line) {
		t.Error("a strictly better HPE should make the cacheline's fix worse")
	}
}

func TestServingCellChangedNoConnectedCell(t *testing.T) {
	ctx := &fakeCtx{beacons: []*beacon.Beacon{ap(1, 2412, -60, false)}, numAP: 1}
	line := CacheLine{}
	if servingCellChanged(ctx, line) {
		t.Error("no connected cell in the request should never trigger a change")
	}
}

func TestServingCellChangedDetectsDifferentCell(t *testing.T) {
	connected := beacon.NewCell(beacon.KindGSM, beacon.Cell{ID1: 1, ID2: 2, ID3: 3, ID4: 4}, -60, true)
	ctx := &fakeCtx{beacons: []*beacon.Beacon{connected}, numAP: 0}

	other := beacon.NewCell(beacon.KindGSM, beacon.Cell{ID1: 9, ID2: 9, ID3: 9, ID4: 9}, -60, false)
	line := CacheLine{Beacons: []*beacon.Beacon{other}}
	if !servingCellChanged(ctx, line) {
		t.Error("a cacheline whose cells don't include the serving cell should report a change")
	}

	sameLine := CacheLine{Beacons: []*beacon.Beacon{connected}}
	if servingCellChanged(ctx, sameLine) {
		t.Error("a cacheline containing the serving cell should not report a change")
	}
}
