package request

import (
	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/session"
)

// AddAPBeacon implements `add_ap_beacon`.
func (c *Context) AddAPBeacon(mac [beacon.MACSize]byte, freqMHz uint32, rssi int16, connected bool, scanTimestamp uint32) error {
	if !beacon.ValidMAC(mac) {
		return newErr(session.KindBadParameters)
	}
	b := beacon.NewAP(mac, freqMHz, clampRSSI(rssi), connected)
	b.Header.Age = c.ageOf(scanTimestamp)
	return c.insert(b)
}

// AddBLEBeacon implements `add_ble_beacon`. BLE beacons
// are one arm of the context's tagged union but carry no plugin of their
// own: the basic/premium chains only answer equal/compare/remove_worst
// for AP and cell kinds. A BLE beacon is placed in the AP section
// (counted in NumAP), so the add succeeds only while that section is
// empty; once a BLE beacon is present, adding another BLE beacon or any
// AP fails with NO_PLUGIN, as does adding a BLE beacon after an AP.
func (c *Context) AddBLEBeacon(mac [beacon.MACSize]byte, uuid [beacon.UUIDSize]byte, major, minor uint16, rssi int16, connected bool, scanTimestamp uint32) error {
	if !beacon.ValidMAC(mac) {
		return newErr(session.KindBadParameters)
	}
	b := beacon.NewBLE(mac, uuid, major, minor, clampRSSI(rssi), connected)
	b.Header.Age = c.ageOf(scanTimestamp)
	return c.insert(b)
}

// CellKindID names the six cellular kinds add_cell_*_beacon accepts.
type CellKindID = beacon.Kind

// AddCellBeacon implements `add_cell_{gsm,umts,lte,
// nbiot,cdma,nr}_beacon` family (and the `_neighbor_beacon` / NMR
// variants, which simply omit id2). ids use beacon.UnknownID for
// "not reported"; out-of-range ids are normalized to UnknownID rather
// than rejected, matching the source's per-field validation.
func (c *Context) AddCellBeacon(kind beacon.Kind, cell beacon.Cell, rssi int16, connected bool, scanTimestamp uint32) error {
	if !kind.IsCell() {
		return newErr(session.KindBadParameters)
	}
	cell = normalizeCellIDs(kind, cell)
	b := beacon.NewCell(kind, cell, clampRSSI(rssi), connected)
	b.Header.Age = c.ageOf(scanTimestamp)
	return c.insert(b)
}

// clampRSSI clamps rssi to the valid dBm range, preserving the -1
// "unknown" sentinel.
func clampRSSI(rssi int16) int16 {
	if rssi == beacon.RSSIUnknown {
		return rssi
	}
	const min, max = -128, 0
	if rssi < min {
		return min
	}
	if rssi > max {
		return max
	}
	return rssi
}

// normalizeCellIDs clears any id field outside its plausible range to
// UnknownID instead of rejecting the beacon outright.
func normalizeCellIDs(kind beacon.Kind, c beacon.Cell) beacon.Cell {
	clamp := func(v int64, max int64) int64 {
		if v < 0 || v > max {
			return beacon.UnknownID
		}
		return v
	}
	switch kind {
	case beacon.KindGSM:
		c.ID1, c.ID2, c.ID3, c.ID4 = clamp(c.ID1, 999), clamp(c.ID2, 999), clamp(c.ID3, 65535), clamp(c.ID4, 65535)
	case beacon.KindCDMA:
		c.ID2, c.ID3, c.ID4 = clamp(c.ID2, 32767), clamp(c.ID3, 65535), clamp(c.ID4, 65535)
	default: // LTE, NBIoT, UMTS, NR
		c.ID1, c.ID2, c.ID4 = clamp(c.ID1, 999), clamp(c.ID2, 999), clamp(c.ID4, 268435455)
	}
	return c
}

// ageOf converts a raw scan timestamp to an age-in-seconds relative to
// the context's open time. The result is unknown unless scanTimestamp
// is after TimestampFloor and not in the future.
func (c *Context) ageOf(scanTimestamp uint32) uint32 {
	headerTime := uint32(c.openTime.Unix())
	if scanTimestamp <= TimestampFloor || headerTime == 0 || scanTimestamp > headerTime {
		return beacon.TimeUnavailable
	}
	return headerTime - scanTimestamp
}

// insert implements "Insertion algorithm (add_beacon)":
// cell-capacity check, plugin equal-merge, ordered insert, then
// remove_worst until budget holds (undoing the insert on failure).
func (c *Context) insert(b *beacon.Beacon) error {
	dyn := c.session.Dynamic
	isCell := b.Header.Type.IsCell()

	if isCell {
		maxCells := int(dyn.TotalBeacons) - int(dyn.MaxAPBeacons)
		if len(c.beacons)-c.numAP >= maxCells {
			return newErr(session.KindTooMany)
		}
	}

	for _, existing := range c.beacons {
		if existing.Header.Type != b.Header.Type {
			continue
		}
		eq, prop, err := c.session.Chain.Equal(c, existing, b)
		if err != nil {
			return newErr(session.KindNoPlugin)
		}
		if eq {
			mergeInto(existing, b, prop)
			return nil
		}
	}

	idx, err := c.insertionIndex(b, isCell)
	if err != nil {
		return newErr(session.KindNoPlugin)
	}
	c.InsertAt(idx, b)
	if !isCell {
		c.numAP++
	}

	budget := int(dyn.MaxAPBeacons)
	if isCell {
		budget = int(dyn.TotalBeacons) - int(dyn.MaxAPBeacons)
	}
	count := func() int {
		if isCell {
			return len(c.beacons) - c.numAP
		}
		return c.numAP
	}
	for count() > budget {
		if err := c.session.Chain.RemoveWorst(c); err != nil {
			c.undoInsert(b)
			return newErr(session.KindTooMany)
		}
	}
	return nil
}

// insertionIndex locates where b belongs among beacons of its own
// kind-section (APs among [0,numAP), cells among [numAP,len)), per the
// active plugin's compare op.
func (c *Context) insertionIndex(b *beacon.Beacon, isCell bool) (int, error) {
	lo, hi := 0, c.numAP
	if isCell {
		lo, hi = c.numAP, len(c.beacons)
	}
	for i := lo; i < hi; i++ {
		diff, err := c.session.Chain.Compare(c, b, c.beacons[i])
		if err != nil {
			return 0, err
		}
		if diff > 0 {
			return i, nil
		}
	}
	return hi, nil
}

// undoInsert removes the first occurrence of b, used when remove_worst
// cannot make room for the beacon that was just inserted.
func (c *Context) undoInsert(b *beacon.Beacon) {
	for i, other := range c.beacons {
		if other == b {
			_, _ = c.RemoveAt(i)
			return
		}
	}
}

// mergeInto folds a duplicate beacon into the one already retained:
// the retained beacon adopts prop, and the better (younger/non-unknown)
// age and higher priority of the two.
func mergeInto(kept, candidate *beacon.Beacon, prop beacon.Property) {
	if kept.Header.Type == beacon.KindAP {
		kept.AP.Prop = prop
	}
	if candidate.Header.Age != beacon.TimeUnavailable &&
		(kept.Header.Age == beacon.TimeUnavailable || candidate.Header.Age < kept.Header.Age) {
		kept.Header.Age = candidate.Header.Age
	}
	if candidate.Header.Priority > kept.Header.Priority {
		kept.Header.Priority = candidate.Header.Priority
	}
	if candidate.Header.Connected {
		kept.Header.Connected = true
	}
}

// AddGNSS implements `add_gnss`.
func (c *Context) AddGNSS(lat, lon float64, hpe uint32, alt float64, vpe uint32, speed, bearing float64, nsat uint32, scanTimestamp uint32) {
	c.gnss = beacon.GNSS{
		Lat: lat, Lon: lon, HPE: hpe, Alt: alt, VPE: vpe,
		Speed: speed, Bearing: bearing, NSat: nsat,
		Age: c.ageOf(scanTimestamp),
	}
}
