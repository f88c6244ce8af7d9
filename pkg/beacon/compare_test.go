package beacon

import "testing"

func apWithMAC(last byte) *Beacon {
	mac := [MACSize]byte{0, 0, 0, 0, 0, last}
	return NewAP(mac, 2412, -60, false)
}

func TestCascadePriorityDecides(t *testing.T) {
	a, b := apWithMAC(1), apWithMAC(2)
	a.Header.Priority = 2
	b.Header.Priority = 1
	if got := Cascade(a, b, MACTiebreak); got <= 0 {
		t.Errorf("higher-priority beacon should outrank, got %d", got)
	}
}

func TestCascadeFallsThroughToAge(t *testing.T) {
	a, b := apWithMAC(1), apWithMAC(2)
	a.Header.Age = 10
	b.Header.Age = 100
	if got := Cascade(a, b, MACTiebreak); got <= 0 {
		t.Errorf("younger beacon should outrank when priority ties, got %d", got)
	}
}

func TestCascadeUnavailableAgeIsWorst(t *testing.T) {
	a, b := apWithMAC(1), apWithMAC(2)
	a.Header.Age = TimeUnavailable
	b.Header.Age = 1000000
	if got := Cascade(a, b, MACTiebreak); got >= 0 {
		t.Errorf("beacon with unavailable age should not outrank a beacon with a known age, got %d", got)
	}
}

func TestCascadeTiebreakOnMAC(t *testing.T) {
	a, b := apWithMAC(1), apWithMAC(2)
	if got := Cascade(a, b, MACTiebreak); got <= 0 {
		t.Errorf("lower MAC should win final tiebreak, got %d", got)
	}
	if got := Cascade(b, a, MACTiebreak); got >= 0 {
		t.Errorf("higher MAC should lose final tiebreak, got %d", got)
	}
}

func TestCascadeConnectedDecidesAfterRSSITies(t *testing.T) {
	a, b := apWithMAC(1), apWithMAC(2)
	a.Header.RSSI = -60
	a.Header.Connected = true
	b.Header.RSSI = -60
	b.Header.Connected = false
	if got := Cascade(a, b, MACTiebreak); got <= 0 {
		t.Errorf("connected beacon should outrank a disconnected one once RSSI ties, got %d", got)
	}
}

func TestCascadeStrongerRSSIWinsBeforeConnected(t *testing.T) {
	a, b := apWithMAC(1), apWithMAC(2)
	a.Header.RSSI = -80
	a.Header.Connected = true
	b.Header.RSSI = -30
	b.Header.Connected = false
	if got := Cascade(a, b, MACTiebreak); got >= 0 {
		t.Errorf("RSSI is checked before connected in the cascade, so stronger RSSI should still win, got %d", got)
	}
}
