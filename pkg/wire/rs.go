package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/skyloc/embedded-client/pkg/config"
)

// RsBody is the decoded plaintext Rs protobuf body.
type RsBody struct {
	Status    uint32 // RsHeader_Status-style status
	Lat, Lon  float64
	HPE       float64
	Source    uint32
	TokenID   uint32 // present only on a successful registration response
	UsedAPs   uint64 // bitmap, bit i set means context AP i contributed to the fix
	DLAppData []byte
	Config    config.Override // server-pushed dynamic-config overrides
}

// EncodeRs serializes an RsBody, used by tests to produce frames
// DecodeResponseFrame can consume. Status
// itself travels in RsHeader not in this body.
func EncodeRs(r RsBody) []byte {
	var b []byte
	b = appendVarintField(b, fRsLat, zigzag(int64(r.Lat*1e6)))
	b = appendVarintField(b, fRsLon, zigzag(int64(r.Lon*1e6)))
	b = appendVarintField(b, fRsHPE, uint64(r.HPE*10))
	b = appendVarintField(b, fRsSource, uint64(r.Source))
	if r.TokenID != 0 {
		b = appendVarintField(b, fRsTokenID, uint64(r.TokenID))
	}
	if r.UsedAPs != 0 {
		b = appendVarintField(b, fRsUsedAPs, r.UsedAPs)
	}
	if len(r.DLAppData) > 0 {
		b = appendBytesField(b, fRsDLAppData, r.DLAppData)
	}
	if cfg := encodeOverride(r.Config); len(cfg) > 0 {
		b = appendBytesField(b, fRsClientConf, cfg)
	}
	return b
}

// Override field numbers within the nested ClientConf submessage.
const (
	fCfgTotalBeacons          = 1
	fCfgMaxAPBeacons          = 2
	fCfgCacheMatchAllPercent  = 3
	fCfgCacheMatchUsedPercent = 4
	fCfgCacheBeaconThreshold  = 5
	fCfgCacheAgeThresholdHr   = 6
	fCfgCacheNegRSSIThreshold = 7
	fCfgMaxVAPPerAP           = 8
	fCfgMaxVAPPerRq           = 9
)

// encodeOverride serializes only the present fields of o.
func encodeOverride(o config.Override) []byte {
	var b []byte
	set := func(num protowire.Number, v *uint32) {
		if v != nil {
			b = appendVarintField(b, num, uint64(*v))
		}
	}
	set(fCfgTotalBeacons, o.TotalBeacons)
	set(fCfgMaxAPBeacons, o.MaxAPBeacons)
	set(fCfgCacheMatchAllPercent, o.CacheMatchAllPercent)
	set(fCfgCacheMatchUsedPercent, o.CacheMatchUsedPercent)
	set(fCfgCacheBeaconThreshold, o.CacheBeaconThreshold)
	set(fCfgCacheAgeThresholdHr, o.CacheAgeThresholdHr)
	set(fCfgCacheNegRSSIThreshold, o.CacheNegRSSIThreshold)
	set(fCfgMaxVAPPerAP, o.MaxVAPPerAP)
	set(fCfgMaxVAPPerRq, o.MaxVAPPerRq)
	return b
}

func decodeOverride(buf []byte) config.Override {
	var o config.Override
	_ = walkFields(buf, func(num protowire.Number, typ protowire.Type, v uint64, _ []byte) {
		val := uint32(v)
		switch num {
		case fCfgTotalBeacons:
			o.TotalBeacons = &val
		case fCfgMaxAPBeacons:
			o.MaxAPBeacons = &val
		case fCfgCacheMatchAllPercent:
			o.CacheMatchAllPercent = &val
		case fCfgCacheMatchUsedPercent:
			o.CacheMatchUsedPercent = &val
		case fCfgCacheBeaconThreshold:
			o.CacheBeaconThreshold = &val
		case fCfgCacheAgeThresholdHr:
			o.CacheAgeThresholdHr = &val
		case fCfgCacheNegRSSIThreshold:
			o.CacheNegRSSIThreshold = &val
		case fCfgMaxVAPPerAP:
			o.MaxVAPPerAP = &val
		case fCfgMaxVAPPerRq:
			o.MaxVAPPerRq = &val
		}
	})
	return o
}

// DecodeRs parses a plaintext Rs protobuf body.
func DecodeRs(buf []byte) (RsBody, error) {
	var r RsBody
	var latRaw, lonRaw uint64
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) {
		switch num {
		case fRsStatus:
			r.Status = uint32(v)
		case fRsLat:
			latRaw = v
		case fRsLon:
			lonRaw = v
		case fRsHPE:
			r.HPE = float64(v) / 10
		case fRsSource:
			r.Source = uint32(v)
		case fRsTokenID:
			r.TokenID = v2uint32(v)
		case fRsUsedAPs:
			r.UsedAPs = v
		case fRsDLAppData:
			r.DLAppData = append([]byte(nil), raw...)
		case fRsClientConf:
			r.Config = decodeOverride(raw)
		}
	})
	r.Lat = float64(unzigzag(latRaw)) / 1e6
	r.Lon = float64(unzigzag(lonRaw)) / 1e6
	return r, err
}

func v2uint32(v uint64) uint32 { return uint32(v) }
