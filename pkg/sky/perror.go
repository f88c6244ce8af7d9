package sky

import (
	"errors"
	"fmt"

	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/location"
	"github.com/skyloc/embedded-client/pkg/session"
)

// Perror implements `perror`: the human-readable name of an
// error kind, matching the original's sky_perror table used by
// sample_client.c's diagnostics.
func Perror(err error) string {
	if err == nil {
		return "NONE"
	}
	var se *session.Error
	if errors.As(err, &se) {
		return se.Kind.String()
	}
	return err.Error()
}

// PServerStatus implements `pserver_status`: the
// human-readable name of a decoded location's status.
func PServerStatus(loc location.Location) string {
	return loc.Status.String()
}

// PBeacon implements `pbeacon`: a one-line human-readable
// dump of a beacon, matching the original's debug-print helper used
// when tracing a request context's contents.
func PBeacon(b *beacon.Beacon) string {
	if b == nil {
		return "<nil beacon>"
	}
	age := "unknown"
	if b.Header.Age != beacon.TimeUnavailable {
		age = fmt.Sprintf("%ds", b.Header.Age)
	}
	switch {
	case b.Header.Type == beacon.KindAP:
		return fmt.Sprintf("AP mac=%02x:%02x:%02x:%02x:%02x:%02x freq=%dMHz rssi=%d age=%s connected=%v",
			b.AP.MAC[0], b.AP.MAC[1], b.AP.MAC[2], b.AP.MAC[3], b.AP.MAC[4], b.AP.MAC[5],
			b.AP.Freq, b.Header.RSSI, age, b.Header.Connected)
	case b.Header.Type == beacon.KindBLE:
		return fmt.Sprintf("BLE mac=%02x:%02x:%02x:%02x:%02x:%02x major=%d minor=%d rssi=%d age=%s",
			b.BLE.MAC[0], b.BLE.MAC[1], b.BLE.MAC[2], b.BLE.MAC[3], b.BLE.MAC[4], b.BLE.MAC[5],
			b.BLE.Major, b.BLE.Minor, b.Header.RSSI, age)
	case b.Header.Type.IsCell():
		return fmt.Sprintf("%s id1=%d id2=%d id3=%d id4=%d id5=%d rssi=%d age=%s connected=%v",
			b.Header.Type, b.Cell.ID1, b.Cell.ID2, b.Cell.ID3, b.Cell.ID4, b.Cell.ID5,
			b.Header.RSSI, age, b.Header.Connected)
	default:
		return fmt.Sprintf("<unknown beacon type %d>", b.Header.Type)
	}
}
