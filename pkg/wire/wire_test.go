package wire

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/config"
)

func testKey() []byte {
	return []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
}

func fixedRand(buf []byte) error {
	for i := range buf {
		buf[i] = byte(i + 7)
	}
	return nil
}

func TestZigzagRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 123456, -123456, 1 << 40, -(1 << 40)} {
		if got := unzigzag(zigzag(v)); got != v {
			t.Errorf("unzigzag(zigzag(%d)) = %d", v, got)
		}
	}
}

func TestPadRoundsUpToBlockBoundary(t *testing.T) {
	cases := []struct {
		size int
		want int
	}{
		{0, 0},
		{1, 15},
		{15, 1},
		{16, 0},
		{17, 15},
	}
	for _, c := range cases {
		if got := pad(c.size); got != c.want {
			t.Errorf("pad(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey()
	plaintext := make([]byte, 32)
	copy(plaintext, []byte("hello world, block aligned!!!!!"))

	iv, ciphertext, err := Encrypt(key, plaintext, fixedRand)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := Decrypt(key, iv, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Decrypt(Encrypt(x)) = %q, want %q", got, plaintext)
	}
}

func TestEncodeRsDecodeRsRoundTrip(t *testing.T) {
	body := RsBody{
		Status:    0,
		Lat:       37.774929,
		Lon:       -122.419418,
		HPE:       12.5,
		Source:    1,
		TokenID:   7,
		UsedAPs:   0b1011,
		DLAppData: []byte{0xDE, 0xAD},
	}
	encoded := EncodeRs(body)
	got, err := DecodeRs(encoded)
	if err != nil {
		t.Fatalf("DecodeRs: %v", err)
	}
	// Status travels out-of-band via RsHeader, not through this body.
	if diff := cmp.Diff(body, got, cmpopts.IgnoreFields(RsBody{}, "Status")); diff != "" {
		t.Errorf("DecodeRs(EncodeRs(body)) mismatch (-want +got):\n%s", diff)
	}
}

func u32(v uint32) *uint32 { return &v }

func TestClientConfOverrideRoundTripsThroughRs(t *testing.T) {
	override := config.Override{
		TotalBeacons:        u32(20),
		MaxVAPPerAP:         u32(8),
		CacheAgeThresholdHr: u32(48),
	}
	encoded := EncodeRs(RsBody{Config: override})
	got, err := DecodeRs(encoded)
	if err != nil {
		t.Fatalf("DecodeRs: %v", err)
	}
	if got.Config.TotalBeacons == nil || *got.Config.TotalBeacons != 20 {
		t.Errorf("TotalBeacons override did not survive the round trip: %+v", got.Config)
	}
	if got.Config.MaxVAPPerAP == nil || *got.Config.MaxVAPPerAP != 8 {
		t.Errorf("MaxVAPPerAP override did not survive the round trip: %+v", got.Config)
	}
	if got.Config.CacheAgeThresholdHr == nil || *got.Config.CacheAgeThresholdHr != 48 {
		t.Errorf("CacheAgeThresholdHr override did not survive the round trip: %+v", got.Config)
	}
	if got.Config.MaxAPBeacons != nil {
		t.Errorf("an absent override field should stay nil, got %v", got.Config.MaxAPBeacons)
	}
}

func TestEncodeRequestFrameRoundTripsPlaintext(t *testing.T) {
	key := testKey()
	mac := [beacon.MACSize]byte{1, 2, 3, 4, 5, 6}
	body := RqBody{
		DeviceID:     []byte("device-001"),
		APs:          []*beacon.Beacon{beacon.NewAP(mac, 2412, -60, true)},
		MaxDLAppData: 256,
	}
	rqBytes := EncodeRq(body)

	frame, err := EncodeRequestFrame(42, 1, true, rqBytes, key, fixedRand)
	if err != nil {
		t.Fatalf("EncodeRequestFrame: %v", err)
	}

	h := int(frame[0])
	hdr, err := UnmarshalRqHeader(frame[1 : 1+h])
	if err != nil {
		t.Fatalf("UnmarshalRqHeader: %v", err)
	}
	if hdr.PartnerID != 42 || hdr.SWVersion != 1 || !hdr.RequestClientConf {
		t.Errorf("RqHeader round trip mismatch: %+v", hdr)
	}

	rest := frame[1+h:]
	ci, err := UnmarshalCryptoInfo(rest[:hdr.CryptoInfoLen])
	if err != nil {
		t.Fatalf("UnmarshalCryptoInfo: %v", err)
	}
	ciphertext := rest[hdr.CryptoInfoLen:][:hdr.RqLen]
	if len(ciphertext)%IVSize != 0 {
		t.Fatalf("ciphertext length %d is not block-aligned", len(ciphertext))
	}

	plaintext, err := Decrypt(key, ci.IV[:], ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	plaintext = plaintext[:len(plaintext)-int(ci.PadLength)]
	if !bytes.Equal(plaintext, rqBytes) {
		t.Errorf("recovered plaintext does not match the original Rq bytes")
	}
}

func TestDecodeResponseFrameRoundTrip(t *testing.T) {
	key := testKey()
	body := RsBody{Lat: 1.5, Lon: -2.5, HPE: 9, Source: 2}
	plain := EncodeRs(body)
	padLen := pad(len(plain))
	padded := make([]byte, len(plain)+padLen)
	copy(padded, plain)

	iv, ciphertext, err := Encrypt(key, padded, fixedRand)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ci := CryptoInfo{PadLength: uint32(padLen)}
	copy(ci.IV[:], iv)
	ciBytes := ci.Marshal()

	hdr := RsHeader{CryptoInfoLen: uint32(len(ciBytes)), RsLen: uint32(len(ciphertext)), Status: 3}
	hdrBytes := hdr.Marshal()

	frame := make([]byte, 0, 1+len(hdrBytes)+len(ciBytes)+len(ciphertext))
	frame = append(frame, byte(len(hdrBytes)))
	frame = append(frame, hdrBytes...)
	frame = append(frame, ciBytes...)
	frame = append(frame, ciphertext...)

	got, err := DecodeResponseFrame(frame, key)
	if err != nil {
		t.Fatalf("DecodeResponseFrame: %v", err)
	}
	if got.Lat != body.Lat || got.Lon != body.Lon || got.HPE != body.HPE {
		t.Errorf("decoded body = %+v, want lat/lon/hpe matching %+v", got, body)
	}
	if got.Status != 3 {
		t.Errorf("Status = %d, want 3 (carried via RsHeader)", got.Status)
	}
}

func TestWorstCaseResponseSizeGrowsWithDLAppData(t *testing.T) {
	small := WorstCaseResponseSize(0)
	large := WorstCaseResponseSize(256)
	if large <= small {
		t.Errorf("WorstCaseResponseSize(256) = %d, want > WorstCaseResponseSize(0) = %d", large, small)
	}
}
