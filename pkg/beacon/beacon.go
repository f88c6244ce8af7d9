// Package beacon implements the beacon data model described in libel's
// beacons.h/.c: a tagged union over Wi-Fi APs, BLE beacons, and cellular
// cells, plus the comparator cascade used to order and prune them.
package beacon

import (
	"bytes"
	"math"
)

// Kind identifies the variant carried by a Beacon. Numeric order matches
// the original Sky_beacon_type_t enum, which the comparator cascade
// relies on directly (lower value wins a type-rank tiebreak).
type Kind uint16

const (
	KindAP Kind = iota + 1
	KindBLE
	KindNR
	KindLTE
	KindUMTS
	KindNBIoT
	KindCDMA
	KindGSM
)

func (k Kind) IsCell() bool {
	return k >= KindNR && k <= KindGSM
}

func (k Kind) String() string {
	switch k {
	case KindAP:
		return "AP"
	case KindBLE:
		return "BLE"
	case KindNR:
		return "NR"
	case KindLTE:
		return "LTE"
	case KindUMTS:
		return "UMTS"
	case KindNBIoT:
		return "NBIOT"
	case KindCDMA:
		return "CDMA"
	case KindGSM:
		return "GSM"
	default:
		return "UNKNOWN"
	}
}

const (
	// MagicBeacon marks a populated beacon slot, mirroring BEACON_MAGIC.
	MagicBeacon = 0xf0f0

	// TimeUnavailable is the age sentinel used when the scan timestamp
	// could not be related to the request's open time.
	TimeUnavailable = ^uint32(0)

	// RSSIUnknown is the wire/API sentinel for "no RSSI reported".
	RSSIUnknown = -1
	// RSSIFloor is the value EffectiveRSSI substitutes for RSSIUnknown.
	RSSIFloor = -127

	// MACSize is the byte length of a hardware MAC address.
	MACSize = 6
	// UUIDSize is the byte length of a BLE UUID.
	UUIDSize = 16

	// MaxVAPPerAP bounds how many virtual-AP patches a single parent AP
	// can carry; the persisted session state reserves this many patch
	// slots per AP. Dynamic config bounds max_vap_per_ap separately by
	// config.MaxVAPPerAPCap, dropping larger overrides.
	MaxVAPPerAP = 16

	// UnknownID is the shared "not reported" sentinel for cell id1..id5,
	// frequency, and timing advance. It is distinct from the valid value
	// zero so that the wire codec's "id_plus_1" collapsing (zero on the
	// wire means "not sent") can tell a real zero from unknown.
	UnknownID = -1
)

// Header carries the fields common to every beacon variant.
type Header struct {
	Magic     uint16
	Type      Kind
	Age       uint32 // seconds before request-context open time; TimeUnavailable if unknown
	RSSI      int16  // dBm, RSSIUnknown sentinel for "unknown"
	Priority  float64
	Connected bool
}

// EffectiveRSSI normalizes the "unknown" sentinel to the RSSI floor
// used in every strength comparison.
func (h Header) EffectiveRSSI() int16 {
	if h.RSSI == RSSIUnknown {
		return RSSIFloor
	}
	return h.RSSI
}

// Property holds the two sticky per-beacon bits the cache machinery
// tracks: whether this beacon currently lives in a cacheline, and
// whether the server's last response credited it toward the fix.
type Property struct {
	InCache bool
	Used    bool
}

// VAPPatch describes how to derive a virtual-AP child MAC from its
// parent: replace the nibble at Index (0..11, MSB-first over 6 bytes)
// with Value.
type VAPPatch struct {
	Index uint8 // 0..11
	Value uint8 // 0..15
}

// AP is the Wi-Fi access point payload.
type AP struct {
	MAC       [MACSize]byte
	Freq      uint32 // MHz
	Prop      Property
	VAP       []VAPPatch // compressed sibling patches, len <= MaxVAPPerAP
	VAPProp   []Property // parallel to VAP
}

// Cell is the shared payload for every cellular beacon kind. Field
// meaning depends on Header.Type, matching libel's struct cell comment
// block (mcc/mnc/lac/ci/bsic for GSM, mcc/mnc/tac/eci/pci for LTE, etc).
type Cell struct {
	ID1  int64 // mcc
	ID2  int64 // mnc, or sid for CDMA
	ID3  int64 // lac/tac, or nid for CDMA
	ID4  int64 // cell id/eci/bsid
	ID5  int64 // bsic/psc/pci/ncid
	Freq int64 // arfcn/uarfcn/earfcn/nrarfcn
	TA   int64 // timing advance
}

// IsNMR reports whether this cell is a neighbor measurement report: it
// has no id2 (the key identifying parameter for every cell type here).
func (c Cell) IsNMR() bool {
	return c.ID2 == UnknownID
}

// BLE is the Bluetooth Low Energy beacon payload.
type BLE struct {
	MAC   [MACSize]byte
	UUID  [UUIDSize]byte
	Major uint16
	Minor uint16
}

// Beacon is the tagged union over AP/BLE/Cell, keyed by Header.Type.
// Only the field matching Header.Type is meaningful.
type Beacon struct {
	Header Header
	AP     AP
	Cell   Cell
	BLE    BLE
}

func NewAP(mac [MACSize]byte, freqMHz uint32, rssi int16, connected bool) *Beacon {
	return &Beacon{
		Header: Header{Magic: MagicBeacon, Type: KindAP, RSSI: rssi, Connected: connected},
		AP:     AP{MAC: mac, Freq: freqMHz},
	}
}

func NewCell(kind Kind, c Cell, rssi int16, connected bool) *Beacon {
	return &Beacon{
		Header: Header{Magic: MagicBeacon, Type: kind, RSSI: rssi, Connected: connected},
		Cell:   c,
	}
}

func NewBLE(mac [MACSize]byte, uuid [UUIDSize]byte, major, minor uint16, rssi int16, connected bool) *Beacon {
	return &Beacon{
		Header: Header{Magic: MagicBeacon, Type: KindBLE, RSSI: rssi, Connected: connected},
		BLE:    BLE{MAC: mac, UUID: uuid, Major: major, Minor: minor},
	}
}

// MACCompare orders two MACs the way COMPARE_MAC does: lower value wins,
// so the comparator returns the difference with operands swapped.
func MACCompare(a, b [MACSize]byte) int {
	return bytes.Compare(b[:], a[:])
}

// ValidMAC rejects the all-zero and broadcast/multicast addresses, per
// add_<kind>_beacon validation rule.
func ValidMAC(mac [MACSize]byte) bool {
	var zero [MACSize]byte
	if mac == zero {
		return false
	}
	var broadcast [MACSize]byte
	for i := range broadcast {
		broadcast[i] = 0xFF
	}
	if mac == broadcast {
		return false
	}
	// Multicast bit is the low bit of the first octet.
	if mac[0]&0x01 != 0 {
		return false
	}
	return true
}

// LocallyAdministered reports the locally-administered bit of a MAC's
// first octet, used by the virtual-AP similarity test.
func LocallyAdministered(b byte) bool {
	return b&0x02 != 0
}

// Nibble returns the 4-bit value at nibble index 0..11 of a 6-byte MAC,
// index 0 being the high nibble of byte 0.
func Nibble(mac [MACSize]byte, index uint8) uint8 {
	b := mac[index/2]
	if index%2 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

// SetNibble returns mac with the nibble at index replaced by value.
func SetNibble(mac [MACSize]byte, index uint8, value uint8) [MACSize]byte {
	out := mac
	i := index / 2
	if index%2 == 0 {
		out[i] = (out[i] & 0x0F) | (value << 4)
	} else {
		out[i] = (out[i] & 0xF0) | (value & 0x0F)
	}
	return out
}

// NaNLatLon reports whether a GNSS fix's lat/lon marks it "unknown",
// matching has_gnss's isnan(lat) test.
func NaNLatLon(lat float64) bool {
	return math.IsNaN(lat)
}
