// Package sky is the C-style API surface: open, close,
// sizeof_state, sizeof_workspace, new_request, set_option, get_option,
// add_*_beacon, add_gnss, sizeof_request_buf, finalize_request,
// decode_response, perror, pserver_status, pbeacon. It is a thin facade
// over pkg/session, pkg/request and pkg/wire, giving a host written
// against the original library's function-table shape a Go-native
// entry point without reimplementing any of the core logic.
package sky

import (
	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/config"
	"github.com/skyloc/embedded-client/pkg/location"
	"github.com/skyloc/embedded-client/pkg/plugin"
	"github.com/skyloc/embedded-client/pkg/request"
	"github.com/skyloc/embedded-client/pkg/session"
)

// Re-exported so callers never need to import pkg/session directly.
type (
	Credentials = session.Credentials
	LogFunc     = session.LogFunc
	LogLevel    = session.LogLevel
	TimeFunc    = session.TimeFunc
	RandFunc    = session.RandFunc
)

const (
	LogCritical = session.LogCritical
	LogError    = session.LogError
	LogWarning  = session.LogWarning
	LogDebug    = session.LogDebug
)

// Open implements `open`.
func Open(creds Credentials, state []byte, chain *plugin.Chain, minLevel LogLevel, logf LogFunc, randf RandFunc, timef TimeFunc) (*session.Session, error) {
	return session.Open(creds, state, chain, minLevel, logf, randf, timef)
}

// Reopen implements the idempotent second-open check against a live
// session handle: identical credentials are a no-op, anything else
// fails ALREADY_OPEN.
func Reopen(s *session.Session, creds Credentials) error {
	return s.Reopen(creds)
}

// Close implements `close`.
func Close(s *session.Session) ([]byte, error) {
	return s.Close()
}

// SizeofState implements `sizeof_state`.
func SizeofState(s *session.Session) int {
	return s.SizeofState()
}

// SizeofWorkspace implements `sizeof_workspace`.
func SizeofWorkspace() int {
	return session.SizeofWorkspace()
}

// SetOption implements `set_option`.
func SetOption(s *session.Session, o config.Override) error {
	return s.SetOption(o)
}

// GetOption implements `get_option`.
func GetOption(s *session.Session) config.Dynamic {
	return s.GetOption()
}

// NewRequest implements `new_request`.
func NewRequest(s *session.Session) (*request.Context, error) {
	return request.New(s)
}

// AddAPBeacon implements `add_ap_beacon`.
func AddAPBeacon(ctx *request.Context, mac [beacon.MACSize]byte, freqMHz uint32, rssi int16, connected bool, scanTimestamp uint32) error {
	return ctx.AddAPBeacon(mac, freqMHz, rssi, connected, scanTimestamp)
}

// AddBLEBeacon implements `add_ble_beacon`.
func AddBLEBeacon(ctx *request.Context, mac [beacon.MACSize]byte, uuid [beacon.UUIDSize]byte, major, minor uint16, rssi int16, connected bool, scanTimestamp uint32) error {
	return ctx.AddBLEBeacon(mac, uuid, major, minor, rssi, connected, scanTimestamp)
}

// AddCellBeacon implements `add_cell_{gsm,umts,lte,
// nbiot,cdma,nr}_beacon` family. The `_neighbor_beacon` (NMR) variants
// are the same call with Cell.ID2 set to beacon.UnknownID.
func AddCellBeacon(ctx *request.Context, kind beacon.Kind, cell beacon.Cell, rssi int16, connected bool, scanTimestamp uint32) error {
	return ctx.AddCellBeacon(kind, cell, rssi, connected, scanTimestamp)
}

// AddGNSS implements `add_gnss`.
func AddGNSS(ctx *request.Context, lat, lon float64, hpe uint32, alt float64, vpe uint32, speed, bearing float64, nsat uint32, scanTimestamp uint32) {
	ctx.AddGNSS(lat, lon, hpe, alt, vpe, speed, bearing, nsat, scanTimestamp)
}

// SizeofRequestBuf implements `sizeof_request_buf`. It returns the same
// fixed size as SizeofWorkspace. FinalizeRequest allocates the frame it
// returns, so no host buffer of this size is passed to it.
func SizeofRequestBuf(ctx *request.Context) int {
	return session.SizeofWorkspace()
}

// FinalizeRequest implements `finalize_request`.
func FinalizeRequest(ctx *request.Context) (request.Outcome, []byte, location.Location, int, error) {
	return ctx.FinalizeRequest()
}

// DecodeResponse implements `decode_response`.
func DecodeResponse(ctx *request.Context, buf []byte) (location.Location, error) {
	return ctx.DecodeResponse(buf)
}
