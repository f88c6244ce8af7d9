package wire

import (
	"github.com/skyloc/embedded-client/pkg/beacon"
)

// RqBody is the plaintext Rq protobuf body, built independently of
// pkg/request (which owns ordering/eviction) to avoid an import cycle:
// pkg/request calls EncodeRq with its already-finalized beacon slices.
type RqBody struct {
	TokenID      uint32 // 0 in DISABLED/UNREGISTERED mode
	DeviceID     []byte // carried directly in DISABLED mode
	SKU          string // non-empty only in UNREGISTERED mode (registration request)
	CountryCode  uint16
	APs          []*beacon.Beacon // KindAP only, already ordered
	Cells        []*beacon.Beacon // cellular kinds, already ordered
	GNSS         beacon.GNSS
	ULAppData    []byte
	MaxDLAppData uint32
}

// EncodeRq serializes body as the Rq protobuf wire format.
func EncodeRq(body RqBody) []byte {
	var b []byte
	if body.TokenID != 0 {
		b = appendVarintField(b, fRqTokenID, uint64(body.TokenID))
	}
	if len(body.DeviceID) > 0 {
		b = appendBytesField(b, fRqDeviceID, body.DeviceID)
	}
	if len(body.APs) > 0 {
		b = appendBytesField(b, fRqAps, encodeAps(body.APs))
	}
	for _, c := range body.Cells {
		b = appendBytesField(b, fRqCells, encodeCell(c))
	}
	if body.GNSS.HasFix() {
		b = appendBytesField(b, fRqGnss, encodeGnss(body.GNSS))
	}
	if body.SKU != "" {
		b = appendBytesField(b, fRqTBR, encodeTBR(body.SKU, body.CountryCode))
	}
	if len(body.ULAppData) > 0 {
		b = appendBytesField(b, fRqULAppData, body.ULAppData)
	}
	if body.MaxDLAppData > 0 {
		b = appendVarintField(b, fRqMaxDLAppData, uint64(body.MaxDLAppData))
	}
	return b
}

// encodeAps builds the Aps submessage: parallel arrays collapse to a
// single common_X_plus_1 scalar when every AP shares that value.
func encodeAps(aps []*beacon.Beacon) []byte {
	var b []byte

	connectedIdx := 0
	for i, a := range aps {
		if a.Header.Connected {
			connectedIdx = i + 1
			break
		}
	}
	if connectedIdx > 0 {
		b = appendVarintField(b, fApsConnectedIdxPlus1, uint64(connectedIdx))
	}

	if commonFreq, ok := commonUint32(aps, func(a *beacon.Beacon) uint32 { return a.AP.Freq }); ok {
		b = appendVarintField(b, fApsCommonFreqPlus1, uint64(commonFreq)+1)
	} else {
		for _, a := range aps {
			b = appendVarintField(b, fApsFrequency, uint64(a.AP.Freq))
		}
	}

	if commonAge, ok := commonUint32(aps, func(a *beacon.Beacon) uint32 { return a.Header.Age }); ok {
		b = appendVarintField(b, fApsCommonAgePlus1, uint64(commonAge)+1)
	} else {
		for _, a := range aps {
			b = appendVarintField(b, fApsAge, uint64(a.Header.Age))
		}
	}

	for _, a := range aps {
		b = appendBytesField(b, fApsMac, a.AP.MAC[:])
	}
	for _, a := range aps {
		b = appendVarintField(b, fApsNegRSSI, uint64(-int64(a.Header.EffectiveRSSI())))
	}
	if vaps := encodeVAPs(aps); len(vaps) > 0 {
		b = appendBytesField(b, fApsVAPs, vaps)
	}
	return b
}

func commonUint32(aps []*beacon.Beacon, get func(*beacon.Beacon) uint32) (uint32, bool) {
	if len(aps) == 0 {
		return 0, false
	}
	v := get(aps[0])
	for _, a := range aps[1:] {
		if get(a) != v {
			return 0, false
		}
	}
	return v, true
}

// encodeVAPs packs every AP's virtual-group patches into a single run
// of [length, parent_ap_index, patch_byte*] records. Each patch byte
// packs nibble index (high nibble) and value (low nibble).
func encodeVAPs(aps []*beacon.Beacon) []byte {
	var out []byte
	for i, a := range aps {
		if len(a.AP.VAP) == 0 {
			continue
		}
		out = append(out, byte(len(a.AP.VAP)), byte(i))
		for _, p := range a.AP.VAP {
			out = append(out, p.Index<<4|p.Value&0x0F)
		}
	}
	return out
}

func cellType(k beacon.Kind) uint32 {
	switch k {
	case beacon.KindCDMA:
		return 3
	case beacon.KindGSM:
		return 4
	case beacon.KindLTE:
		return 5
	case beacon.KindNBIoT:
		return 6
	case beacon.KindUMTS:
		return 7
	case beacon.KindNR:
		return 8
	default:
		return 0
	}
}

// idPlus1 collapses beacon.UnknownID to 0 on the wire: every id field
// is sent as id+1 so that zero unambiguously means "not reported".
func idPlus1(id int64) uint64 {
	if id == beacon.UnknownID {
		return 0
	}
	return uint64(id + 1)
}

func encodeCell(c *beacon.Beacon) []byte {
	var b []byte
	b = appendVarintField(b, fCellType, uint64(cellType(c.Header.Type)))
	b = appendVarintField(b, fCellID1Plus1, idPlus1(c.Cell.ID1))
	b = appendVarintField(b, fCellID2Plus1, idPlus1(c.Cell.ID2))
	b = appendVarintField(b, fCellID3Plus1, idPlus1(c.Cell.ID3))
	b = appendVarintField(b, fCellID4Plus1, idPlus1(c.Cell.ID4))
	b = appendVarintField(b, fCellID5Plus1, idPlus1(c.Cell.ID5))
	if c.Header.Connected {
		b = appendVarintField(b, fCellConnected, 1)
	}
	b = appendVarintField(b, fCellNegRSSI, uint64(-int64(c.Header.EffectiveRSSI())))
	b = appendVarintField(b, fCellAge, uint64(c.Header.Age))
	b = appendVarintField(b, fCellTAPlus1, idPlus1(c.Cell.TA))
	return b
}

// encodeGnss scales the fix to the wire's fixed-point integer units:
// lat/lon × 1e6, alt × 10, speed × 10.
func encodeGnss(g beacon.GNSS) []byte {
	var b []byte
	b = appendVarintField(b, fGnssLat, zigzag(int64(g.Lat*1e6)))
	b = appendVarintField(b, fGnssLon, zigzag(int64(g.Lon*1e6)))
	b = appendVarintField(b, fGnssHPE, uint64(g.HPE))
	b = appendVarintField(b, fGnssAlt, zigzag(int64(g.Alt*10)))
	b = appendVarintField(b, fGnssVPE, uint64(g.VPE))
	b = appendVarintField(b, fGnssSpeed, uint64(g.Speed*10))
	b = appendVarintField(b, fGnssBearing, uint64(g.Bearing))
	b = appendVarintField(b, fGnssNSat, uint64(g.NSat))
	b = appendVarintField(b, fGnssAge, uint64(g.Age))
	return b
}

func zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func unzigzag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

func encodeTBR(sku string, cc uint16) []byte {
	var b []byte
	b = appendBytesField(b, fTBRSKU, []byte(sku))
	b = appendVarintField(b, fTBRCC, uint64(cc))
	return b
}
