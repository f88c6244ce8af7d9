package beacon

// CascadeResult is the outcome of a comparator key: positive means a
// outranks b, negative means b outranks a, zero means the key did not
// decide and the cascade should move to the next key.
type CascadeResult int

// Cascade runs the fixed comparator discipline, stopping at the first
// key that differs: priority, age, type rank, effective RSSI,
// connected, then the caller-supplied final tiebreak (MAC for APs, id4
// for cells).
//
// tiebreak must return a positive value when a outranks b on the
// deterministic final key, negative when b outranks a, never zero for
// two beacons with distinct identities.
func Cascade(a, b *Beacon, tiebreak func(a, b *Beacon) int) int {
	if d := comparePriority(a, b); d != 0 {
		return d
	}
	if d := compareAge(a, b); d != 0 {
		return d
	}
	if d := compareType(a, b); d != 0 {
		return d
	}
	if d := compareRSSI(a, b); d != 0 {
		return d
	}
	if d := compareConnected(a, b); d != 0 {
		return d
	}
	if tiebreak != nil {
		return tiebreak(a, b)
	}
	return 0
}

// comparePriority: higher value wins.
func comparePriority(a, b *Beacon) int {
	switch {
	case a.Header.Priority > b.Header.Priority:
		return 1
	case a.Header.Priority < b.Header.Priority:
		return -1
	default:
		return 0
	}
}

// compareAge: younger (lower) age wins, so the difference is inverted.
func compareAge(a, b *Beacon) int {
	au, bu := ageRank(a.Header.Age), ageRank(b.Header.Age)
	switch {
	case au < bu:
		return 1
	case au > bu:
		return -1
	default:
		return 0
	}
}

// ageRank treats TimeUnavailable as "oldest possible", never better than
// any known age.
func ageRank(age uint32) uint64 {
	if age == TimeUnavailable {
		return 1<<63 - 1
	}
	return uint64(age)
}

// compareType: lower numeric type tag wins (AP < BLE < NR < LTE < UMTS <
// NBIOT < CDMA < GSM).
func compareType(a, b *Beacon) int {
	switch {
	case a.Header.Type < b.Header.Type:
		return 1
	case a.Header.Type > b.Header.Type:
		return -1
	default:
		return 0
	}
}

// compareRSSI: stronger (higher) effective RSSI wins.
func compareRSSI(a, b *Beacon) int {
	ar, br := a.Header.EffectiveRSSI(), b.Header.EffectiveRSSI()
	switch {
	case ar > br:
		return 1
	case ar < br:
		return -1
	default:
		return 0
	}
}

// compareConnected: true beats false.
func compareConnected(a, b *Beacon) int {
	switch {
	case a.Header.Connected && !b.Header.Connected:
		return 1
	case !a.Header.Connected && b.Header.Connected:
		return -1
	default:
		return 0
	}
}

// MACTiebreak is the final cascade key for APs: lower MAC wins.
func MACTiebreak(a, b *Beacon) int {
	return MACCompare(a.AP.MAC, b.AP.MAC)
}

// CellIDTiebreak is the final cascade key for cells: lower id4 wins.
func CellIDTiebreak(a, b *Beacon) int {
	switch {
	case a.Cell.ID4 < b.Cell.ID4:
		return 1
	case a.Cell.ID4 > b.Cell.ID4:
		return -1
	default:
		return 0
	}
}
