package beacon

import "testing"

func TestValidMAC(t *testing.T) {
	cases := []struct {
		name string
		mac  [MACSize]byte
		want bool
	}{
		{"zero", [6]byte{0, 0, 0, 0, 0, 0}, false},
		{"broadcast", [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, false},
		{"multicast bit set", [6]byte{0x01, 0, 0, 0, 0, 0}, false},
		{"ordinary unicast", [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidMAC(tc.mac); got != tc.want {
				t.Errorf("ValidMAC(%v) = %v, want %v", tc.mac, got, tc.want)
			}
		})
	}
}

func TestNibbleRoundTrip(t *testing.T) {
	mac := [MACSize]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc}
	for i := uint8(0); i < 12; i++ {
		out := SetNibble(mac, i, 0xF)
		if got := Nibble(out, i); got != 0xF {
			t.Fatalf("nibble %d: got %x after SetNibble, want f", i, got)
		}
	}
	if Nibble(mac, 0) != 0x1 || Nibble(mac, 1) != 0x2 {
		t.Fatalf("unexpected initial nibbles: %x %x", Nibble(mac, 0), Nibble(mac, 1))
	}
}

func TestEffectiveRSSI(t *testing.T) {
	h := Header{RSSI: RSSIUnknown}
	if got := h.EffectiveRSSI(); got != RSSIFloor {
		t.Errorf("unknown RSSI: got %d, want floor %d", got, RSSIFloor)
	}
	h.RSSI = -55
	if got := h.EffectiveRSSI(); got != -55 {
		t.Errorf("known RSSI: got %d, want -55", got)
	}
}

func TestIsNMR(t *testing.T) {
	c := Cell{ID1: 310, ID2: UnknownID}
	if !c.IsNMR() {
		t.Error("cell with unknown id2 should be NMR")
	}
	c.ID2 = 260
	if c.IsNMR() {
		t.Error("cell with known id2 should not be NMR")
	}
}

func TestMACCompare(t *testing.T) {
	lower := [MACSize]byte{0, 0, 0, 0, 0, 1}
	higher := [MACSize]byte{0, 0, 0, 0, 0, 2}
	if MACCompare(lower, higher) <= 0 {
		t.Error("lower MAC should outrank higher MAC (positive result)")
	}
	if MACCompare(higher, lower) >= 0 {
		t.Error("higher MAC should not outrank lower MAC")
	}
	if MACCompare(lower, lower) != 0 {
		t.Error("equal MACs should compare equal")
	}
}

func TestUnknownGNSSHasNoFix(t *testing.T) {
	if UnknownGNSS().HasFix() {
		t.Error("UnknownGNSS should report no fix")
	}
	fix := GNSS{Lat: 37.0, Lon: -122.0}
	if !fix.HasFix() {
		t.Error("a GNSS with real coordinates should report a fix")
	}
}
