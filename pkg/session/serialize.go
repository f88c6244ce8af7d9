package session

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/cache"
	"github.com/skyloc/embedded-client/pkg/config"
	"github.com/skyloc/embedded-client/pkg/location"
	"github.com/skyloc/embedded-client/pkg/plugin"

	crc32 "github.com/skyloc/embedded-client/internal/crc32"
)

// Fixed-width record sizes for the persisted state layout. Every
// on-disk record is fixed-size (no length-prefixed variable data other
// than the device id), matching a no-dynamic-allocation resource
// policy: the host can size its buffer from SizeofState alone.
const (
	sizeofHeader = 16 // magic, size, time, crc32 — uint32 each

	sizeofCredentials = 4 + AESKeySize + 1 + MaxDeviceID + 1 + MaxSKU + 2 // partnerID + key + idLen + id + skuLen + sku + cc
	sizeofDynamic     = 4 * 10                                           // nine uint32 fields + last_config_time (unix seconds)
	sizeofTBR         = 1 + 2 + MaxSignedToken + 1                       // state, tokenLen, signed token, needs_time

	vapRecordBytes  = 2                        // index, value
	vapPropBytes    = 2                        // in_cache, used
	sizeofAPFields  = 6 + 4 + 1 + 1 + 1 + (vapRecordBytes+vapPropBytes)*beacon.MaxVAPPerAP
	sizeofCellFields = 8 * 7
	sizeofBLEFields  = 6 + 16 + 2 + 2

	sizeofBeaconHeader = 2 + 4 + 2 + 8 + 1 // type, age, rssi, priority, connected
	sizeofBeaconRecord = sizeofBeaconHeader + sizeofAPFields + sizeofCellFields + sizeofBLEFields

	sizeofGNSS = 8 + 8 + 4 + 8 + 4 + 8 + 8 + 4 + 4 // lat,lon,hpe,alt,vpe,speed,bearing,nsat,age
	sizeofLoc  = 8 + 8 + 8 + 2 + 2                 // lat,lon,hpe,source,status

	sizeofCacheline = 2 + 2 + 4 + config.MaxTotalBeacons*sizeofBeaconRecord + sizeofGNSS + sizeofLoc
)

type byteWriter struct {
	buf []byte
}

func (w *byteWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *byteWriter) bytes(b []byte, width int) {
	out := make([]byte, width)
	copy(out, b)
	w.buf = append(w.buf, out...)
}
func (w *byteWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *byteWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *byteWriter) i64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}
func (w *byteWriter) f64(v float64) { w.i64(int64(math.Float64bits(v))) }
func (w *byteWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) ensure(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("truncated state buffer")
	}
	return nil
}
func (r *byteReader) u8() (uint8, error) {
	if err := r.ensure(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}
func (r *byteReader) bytesN(width int) ([]byte, error) {
	if err := r.ensure(width); err != nil {
		return nil, err
	}
	out := append([]byte(nil), r.buf[r.pos:r.pos+width]...)
	r.pos += width
	return out, nil
}
func (r *byteReader) u16() (uint16, error) {
	if err := r.ensure(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}
func (r *byteReader) u32() (uint32, error) {
	if err := r.ensure(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}
func (r *byteReader) i64() (int64, error) {
	if err := r.ensure(8); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}
func (r *byteReader) f64() (float64, error) {
	v, err := r.i64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(v)), nil
}
func (r *byteReader) boolean() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func encodeBeacon(w *byteWriter, b *beacon.Beacon) {
	if b == nil {
		b = &beacon.Beacon{}
	}
	w.u16(uint16(b.Header.Type))
	w.u32(b.Header.Age)
	w.u16(uint16(b.Header.RSSI))
	w.f64(b.Header.Priority)
	w.boolean(b.Header.Connected)

	w.bytes(b.AP.MAC[:], 6)
	w.u32(b.AP.Freq)
	w.boolean(b.AP.Prop.InCache)
	w.boolean(b.AP.Prop.Used)
	w.u8(uint8(len(b.AP.VAP)))
	for i := 0; i < beacon.MaxVAPPerAP; i++ {
		if i < len(b.AP.VAP) {
			w.u8(b.AP.VAP[i].Index)
			w.u8(b.AP.VAP[i].Value)
		} else {
			w.u8(0)
			w.u8(0)
		}
	}
	for i := 0; i < beacon.MaxVAPPerAP; i++ {
		if i < len(b.AP.VAPProp) {
			w.boolean(b.AP.VAPProp[i].InCache)
			w.boolean(b.AP.VAPProp[i].Used)
		} else {
			w.boolean(false)
			w.boolean(false)
		}
	}

	w.i64(b.Cell.ID1)
	w.i64(b.Cell.ID2)
	w.i64(b.Cell.ID3)
	w.i64(b.Cell.ID4)
	w.i64(b.Cell.ID5)
	w.i64(b.Cell.Freq)
	w.i64(b.Cell.TA)

	w.bytes(b.BLE.MAC[:], 6)
	w.bytes(b.BLE.UUID[:], 16)
	w.u16(b.BLE.Major)
	w.u16(b.BLE.Minor)
}

func decodeBeacon(r *byteReader) (*beacon.Beacon, error) {
	b := &beacon.Beacon{}
	typ, err := r.u16()
	if err != nil {
		return nil, err
	}
	b.Header.Type = beacon.Kind(typ)
	if b.Header.Age, err = r.u32(); err != nil {
		return nil, err
	}
	rssi, err := r.u16()
	if err != nil {
		return nil, err
	}
	b.Header.RSSI = int16(rssi)
	if b.Header.Priority, err = r.f64(); err != nil {
		return nil, err
	}
	if b.Header.Connected, err = r.boolean(); err != nil {
		return nil, err
	}

	mac, err := r.bytesN(6)
	if err != nil {
		return nil, err
	}
	copy(b.AP.MAC[:], mac)
	if b.AP.Freq, err = r.u32(); err != nil {
		return nil, err
	}
	if b.AP.Prop.InCache, err = r.boolean(); err != nil {
		return nil, err
	}
	if b.AP.Prop.Used, err = r.boolean(); err != nil {
		return nil, err
	}
	vapCount, err := r.u8()
	if err != nil {
		return nil, err
	}
	patches := make([]beacon.VAPPatch, beacon.MaxVAPPerAP)
	for i := range patches {
		idx, err := r.u8()
		if err != nil {
			return nil, err
		}
		val, err := r.u8()
		if err != nil {
			return nil, err
		}
		patches[i] = beacon.VAPPatch{Index: idx, Value: val}
	}
	props := make([]beacon.Property, beacon.MaxVAPPerAP)
	for i := range props {
		ic, err := r.boolean()
		if err != nil {
			return nil, err
		}
		used, err := r.boolean()
		if err != nil {
			return nil, err
		}
		props[i] = beacon.Property{InCache: ic, Used: used}
	}
	if int(vapCount) <= beacon.MaxVAPPerAP {
		b.AP.VAP = patches[:vapCount]
		b.AP.VAPProp = props[:vapCount]
	}

	ids := make([]int64, 7)
	for i := range ids {
		if ids[i], err = r.i64(); err != nil {
			return nil, err
		}
	}
	b.Cell = beacon.Cell{ID1: ids[0], ID2: ids[1], ID3: ids[2], ID4: ids[3], ID5: ids[4], Freq: ids[5], TA: ids[6]}

	bleMac, err := r.bytesN(6)
	if err != nil {
		return nil, err
	}
	copy(b.BLE.MAC[:], bleMac)
	bleUUID, err := r.bytesN(16)
	if err != nil {
		return nil, err
	}
	copy(b.BLE.UUID[:], bleUUID)
	if b.BLE.Major, err = r.u16(); err != nil {
		return nil, err
	}
	if b.BLE.Minor, err = r.u16(); err != nil {
		return nil, err
	}
	if b.Header.Type == beacon.Kind(0) {
		return nil, nil
	}
	return b, nil
}

func encodeGNSS(w *byteWriter, g beacon.GNSS) {
	w.f64(g.Lat)
	w.f64(g.Lon)
	w.u32(g.HPE)
	w.f64(g.Alt)
	w.u32(g.VPE)
	w.f64(g.Speed)
	w.f64(g.Bearing)
	w.u32(g.NSat)
	w.u32(g.Age)
}

func decodeGNSS(r *byteReader) (beacon.GNSS, error) {
	var g beacon.GNSS
	var err error
	if g.Lat, err = r.f64(); err != nil {
		return g, err
	}
	if g.Lon, err = r.f64(); err != nil {
		return g, err
	}
	if g.HPE, err = r.u32(); err != nil {
		return g, err
	}
	if g.Alt, err = r.f64(); err != nil {
		return g, err
	}
	if g.VPE, err = r.u32(); err != nil {
		return g, err
	}
	if g.Speed, err = r.f64(); err != nil {
		return g, err
	}
	if g.Bearing, err = r.f64(); err != nil {
		return g, err
	}
	if g.NSat, err = r.u32(); err != nil {
		return g, err
	}
	if g.Age, err = r.u32(); err != nil {
		return g, err
	}
	return g, nil
}

func encodeLoc(w *byteWriter, l location.Location) {
	w.f64(l.Lat)
	w.f64(l.Lon)
	w.f64(l.HPE)
	w.u16(uint16(l.Source))
	w.u16(uint16(l.Status))
}

func decodeLoc(r *byteReader) (location.Location, error) {
	var l location.Location
	var err error
	if l.Lat, err = r.f64(); err != nil {
		return l, err
	}
	if l.Lon, err = r.f64(); err != nil {
		return l, err
	}
	if l.HPE, err = r.f64(); err != nil {
		return l, err
	}
	src, err := r.u16()
	if err != nil {
		return l, err
	}
	l.Source = location.Source(src)
	status, err := r.u16()
	if err != nil {
		return l, err
	}
	l.Status = location.Status(status)
	return l, nil
}

func encodeCacheline(w *byteWriter, l cache.Line) {
	w.u16(uint16(l.NumBeacons))
	w.u16(uint16(l.NumAP))
	if l.Time.IsZero() {
		w.u32(0)
	} else {
		w.u32(uint32(l.Time.Unix()))
	}
	for i := 0; i < config.MaxTotalBeacons; i++ {
		if i < len(l.Beacons) {
			encodeBeacon(w, l.Beacons[i])
		} else {
			encodeBeacon(w, nil)
		}
	}
	encodeGNSS(w, l.GNSS)
	encodeLoc(w, l.Loc)
}

func decodeCacheline(r *byteReader) (cache.Line, error) {
	var l cache.Line
	numBeacons, err := r.u16()
	if err != nil {
		return l, err
	}
	l.NumBeacons = int(numBeacons)
	numAP, err := r.u16()
	if err != nil {
		return l, err
	}
	l.NumAP = int(numAP)
	t, err := r.u32()
	if err != nil {
		return l, err
	}
	if t != 0 {
		l.Time = time.Unix(int64(t), 0)
	}
	for i := 0; i < config.MaxTotalBeacons; i++ {
		b, err := decodeBeacon(r)
		if err != nil {
			return l, err
		}
		if i < l.NumBeacons && b != nil {
			l.Beacons = append(l.Beacons, b)
		}
	}
	if l.GNSS, err = decodeGNSS(r); err != nil {
		return l, err
	}
	if l.Loc, err = decodeLoc(r); err != nil {
		return l, err
	}
	return l, nil
}

// Marshal serializes the session into its persisted state layout: a
// 16-byte header followed by credentials, dynamic config, TBR state,
// and the cacheline array.
func (s *Session) Marshal() ([]byte, error) {
	w := &byteWriter{}

	w.u32(s.Credentials.PartnerID)
	w.bytes(s.Credentials.AESKey[:], AESKeySize)
	w.u8(uint8(len(s.Credentials.DeviceID)))
	w.bytes(s.Credentials.DeviceID, MaxDeviceID)
	w.u8(uint8(len(s.Credentials.SKU)))
	w.bytes([]byte(s.Credentials.SKU), MaxSKU)
	w.u16(s.Credentials.CountryCode)

	d := s.Dynamic
	w.u32(d.TotalBeacons)
	w.u32(d.MaxAPBeacons)
	w.u32(d.CacheMatchAllPercent)
	w.u32(d.CacheMatchUsedPercent)
	w.u32(d.CacheBeaconThreshold)
	w.u32(d.CacheAgeThresholdHr)
	w.u32(d.CacheNegRSSIThreshold)
	w.u32(d.MaxVAPPerAP)
	w.u32(d.MaxVAPPerRq)
	if d.LastConfigTime.IsZero() {
		w.u32(0)
	} else {
		w.u32(uint32(d.LastConfigTime.Unix()))
	}

	now := s.TimeOf()

	w.u8(uint8(s.TBR.State))
	signed, err := s.signedToken(now)
	if err != nil {
		return nil, wrapErr(KindEncodeError, err)
	}
	w.u16(uint16(len(signed)))
	w.bytes([]byte(signed), MaxSignedToken)
	w.boolean(s.TBR.NeedsTime)

	w.u32(uint32(cache.Size))
	for i := 0; i < cache.Size; i++ {
		encodeCacheline(w, s.Cache.Lines[i])
	}

	body := w.buf
	var ts uint32
	if !now.IsZero() {
		ts = uint32(now.Unix())
	}

	hdr := &byteWriter{}
	hdr.u32(HeaderMagic)
	hdr.u32(uint32(sizeofHeader + len(body)))
	hdr.u32(ts)
	crc := crc32.Checksum(body)
	hdr.u32(crc)

	return append(hdr.buf, body...), nil
}

// Unmarshal restores a Session from a persisted state buffer for the
// `open` operation: validates magic, size, and CRC before adopting the
// decoded fields.
func Unmarshal(buf []byte, chain *plugin.Chain) (*Session, error) {
	if len(buf) < sizeofHeader {
		return nil, newErr(KindBadState)
	}
	hr := &byteReader{buf: buf[:sizeofHeader]}
	magic, _ := hr.u32()
	size, _ := hr.u32()
	ts, _ := hr.u32()
	crc, _ := hr.u32()

	if magic != HeaderMagic {
		return nil, newErr(KindBadState)
	}
	body := buf[sizeofHeader:]
	if int(size) != sizeofHeader+len(body) {
		return nil, newErr(KindBadState)
	}
	if crc32.Checksum(body) != crc {
		return nil, newErr(KindBadState)
	}

	r := &byteReader{buf: body}
	s := &Session{Header: Header{Magic: magic, Size: size, Time: ts, CRC32: crc}, Chain: chain}

	partnerID, err := r.u32()
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	s.Credentials.PartnerID = partnerID
	key, err := r.bytesN(AESKeySize)
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	copy(s.Credentials.AESKey[:], key)
	idLen, err := r.u8()
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	idBytes, err := r.bytesN(MaxDeviceID)
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	s.Credentials.DeviceID = idBytes[:idLen]
	skuLen, err := r.u8()
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	skuBytes, err := r.bytesN(MaxSKU)
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	s.Credentials.SKU = string(skuBytes[:skuLen])
	if s.Credentials.CountryCode, err = r.u16(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}

	var d config.Dynamic
	if d.TotalBeacons, err = r.u32(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if d.MaxAPBeacons, err = r.u32(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if d.CacheMatchAllPercent, err = r.u32(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if d.CacheMatchUsedPercent, err = r.u32(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if d.CacheBeaconThreshold, err = r.u32(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if d.CacheAgeThresholdHr, err = r.u32(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if d.CacheNegRSSIThreshold, err = r.u32(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if d.MaxVAPPerAP, err = r.u32(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if d.MaxVAPPerRq, err = r.u32(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	lastCfg, err := r.u32()
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if lastCfg != 0 {
		d.LastConfigTime = time.Unix(int64(lastCfg), 0)
	}
	if !d.Validate() {
		d = config.DefaultDynamic()
	}
	s.Dynamic = d

	tbrState, err := r.u8()
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	s.TBR.State = AuthState(tbrState)
	tokenLen, err := r.u16()
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	tokenBuf, err := r.bytesN(MaxSignedToken)
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if int(tokenLen) > MaxSignedToken {
		return nil, newErr(KindBadState)
	}
	if err := s.adoptSignedToken(string(tokenBuf[:tokenLen])); err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	if s.TBR.NeedsTime, err = r.boolean(); err != nil {
		return nil, wrapErr(KindBadState, err)
	}

	numLines, err := r.u32()
	if err != nil {
		return nil, wrapErr(KindBadState, err)
	}
	s.Cache = cache.NewStore()
	for i := 0; i < int(numLines) && i < cache.Size; i++ {
		line, err := decodeCacheline(r)
		if err != nil {
			return nil, wrapErr(KindBadState, err)
		}
		s.Cache.Lines[i] = line
	}

	return s, nil
}
