package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers for the wire messages. These tag assignments are this
// codec's own; what has to match exactly is the layout (one
// byte-length-prefixed header, a CryptoInfo, an encrypted body) and
// every optimization rule (common_X_plus_1, id_plus_1, negated RSSI,
// packed vaps).
const (
	fRqHeaderPartnerID     = 1
	fRqHeaderCryptoInfoLen = 2
	fRqHeaderRqLen         = 3
	fRqHeaderSWVersion     = 4
	fRqHeaderClientConf    = 5

	fRsHeaderCryptoInfoLen = 1
	fRsHeaderRsLen         = 2
	fRsHeaderStatus        = 3

	fCryptoInfoIV        = 1
	fCryptoInfoPadLength = 2

	fRqTokenID       = 1
	fRqAps           = 2
	fRqCells         = 3
	fRqGnss          = 4
	fRqTBR           = 5
	fRqULAppData     = 6
	fRqMaxDLAppData  = 7
	fRqDeviceID      = 8

	fApsConnectedIdxPlus1 = 1
	fApsCommonFreqPlus1   = 2
	fApsCommonAgePlus1    = 3
	fApsMac               = 4
	fApsFrequency         = 5
	fApsNegRSSI           = 6
	fApsAge               = 7
	fApsVAPs              = 8

	fCellType        = 1
	fCellID1Plus1    = 2
	fCellID2Plus1    = 3
	fCellID3Plus1    = 4
	fCellID4Plus1    = 5
	fCellID5Plus1    = 6
	fCellConnected   = 7
	fCellNegRSSI     = 8
	fCellAge         = 9
	fCellTAPlus1     = 10

	fGnssLat     = 1
	fGnssLon     = 2
	fGnssHPE     = 3
	fGnssAlt     = 4
	fGnssVPE     = 5
	fGnssSpeed   = 6
	fGnssBearing = 7
	fGnssNSat    = 8
	fGnssAge     = 9

	fTBRSKU = 1
	fTBRCC  = 2

	fRsStatus      = 1
	fRsLat         = 2
	fRsLon         = 3
	fRsHPE         = 4
	fRsSource      = 5
	fRsTokenID     = 6
	fRsUsedAPs     = 7
	fRsClientConf  = 8
	fRsDLAppData   = 9
)

// RqHeader is the first protobuf in a request frame.
type RqHeader struct {
	PartnerID       uint32
	CryptoInfoLen   uint32
	RqLen           uint32
	SWVersion       uint32
	RequestClientConf bool
}

func (h RqHeader) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, fRqHeaderPartnerID, uint64(h.PartnerID))
	b = appendVarintField(b, fRqHeaderCryptoInfoLen, uint64(h.CryptoInfoLen))
	b = appendVarintField(b, fRqHeaderRqLen, uint64(h.RqLen))
	b = appendVarintField(b, fRqHeaderSWVersion, uint64(h.SWVersion))
	if h.RequestClientConf {
		b = appendVarintField(b, fRqHeaderClientConf, 1)
	}
	return b
}

func UnmarshalRqHeader(buf []byte) (RqHeader, error) {
	var h RqHeader
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, v uint64, _ []byte) {
		switch num {
		case fRqHeaderPartnerID:
			h.PartnerID = uint32(v)
		case fRqHeaderCryptoInfoLen:
			h.CryptoInfoLen = uint32(v)
		case fRqHeaderRqLen:
			h.RqLen = uint32(v)
		case fRqHeaderSWVersion:
			h.SWVersion = uint32(v)
		case fRqHeaderClientConf:
			h.RequestClientConf = v != 0
		}
	})
	return h, err
}

// RsHeader is the first protobuf in a response frame.
type RsHeader struct {
	CryptoInfoLen uint32
	RsLen         uint32
	Status        uint32 // RsHeader_Status
}

func (h RsHeader) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, fRsHeaderCryptoInfoLen, uint64(h.CryptoInfoLen))
	b = appendVarintField(b, fRsHeaderRsLen, uint64(h.RsLen))
	b = appendVarintField(b, fRsHeaderStatus, uint64(h.Status))
	return b
}

func UnmarshalRsHeader(buf []byte) (RsHeader, error) {
	var h RsHeader
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, v uint64, _ []byte) {
		switch num {
		case fRsHeaderCryptoInfoLen:
			h.CryptoInfoLen = uint32(v)
		case fRsHeaderRsLen:
			h.RsLen = uint32(v)
		case fRsHeaderStatus:
			h.Status = uint32(v)
		}
	})
	return h, err
}

// CryptoInfo carries the IV and padding length for the encrypted body
// that follows it in the frame.
type CryptoInfo struct {
	IV        [IVSize]byte
	PadLength uint32
}

func (c CryptoInfo) Marshal() []byte {
	var b []byte
	b = appendBytesField(b, fCryptoInfoIV, c.IV[:])
	b = appendVarintField(b, fCryptoInfoPadLength, uint64(c.PadLength))
	return b
}

func UnmarshalCryptoInfo(buf []byte) (CryptoInfo, error) {
	var c CryptoInfo
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) {
		switch num {
		case fCryptoInfoIV:
			copy(c.IV[:], raw)
		case fCryptoInfoPadLength:
			c.PadLength = uint32(v)
		}
	})
	return c, err
}

// --- protowire helpers -----------------------------------------------

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// walkFields iterates every (field, wiretype) pair in buf, calling fn
// with the decoded varint (for varint/fixed types) or raw bytes (for
// length-delimited types).
func walkFields(buf []byte, fn func(num protowire.Number, typ protowire.Type, v uint64, raw []byte)) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fmt.Errorf("wire: bad tag: %w", protowire.ParseError(n))
		}
		buf = buf[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return fmt.Errorf("wire: bad varint: %w", protowire.ParseError(n))
			}
			fn(num, typ, v, nil)
			buf = buf[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(buf)
			if n < 0 {
				return fmt.Errorf("wire: bad fixed64: %w", protowire.ParseError(n))
			}
			fn(num, typ, v, nil)
			buf = buf[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(buf)
			if n < 0 {
				return fmt.Errorf("wire: bad fixed32: %w", protowire.ParseError(n))
			}
			fn(num, typ, uint64(v), nil)
			buf = buf[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("wire: bad bytes: %w", protowire.ParseError(n))
			}
			fn(num, typ, 0, v)
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return fmt.Errorf("wire: bad field: %w", protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	return nil
}
