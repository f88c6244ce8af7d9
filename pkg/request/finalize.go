package request

import (
	"github.com/skyloc/embedded-client/pkg/location"
	"github.com/skyloc/embedded-client/pkg/session"
	"github.com/skyloc/embedded-client/pkg/wire"
)

// Outcome is the three-way result of FinalizeRequest, mirroring
// {LOCATION, REQUEST, ERROR}.
type Outcome int

const (
	OutcomeError Outcome = iota
	OutcomeLocation
	OutcomeRequest
)

// FinalizeRequest implements `finalize_request`: runs a
// cache-match pass; on hit returns OutcomeLocation with loc filled and no
// buffer written, else builds the encrypted wire frame and returns
// OutcomeRequest with the worst-case response size.
func (c *Context) FinalizeRequest() (Outcome, []byte, location.Location, int, error) {
	s := c.session
	s.Cache.ExpireOlderThan(c.openTime, s.Dynamic.CacheAgeThresholdHr)

	if len(c.beacons) > 0 {
		if err := s.Chain.CacheMatch(c); err != nil {
			return OutcomeError, nil, location.Location{}, 0, wrapErr(session.KindNoPlugin, err)
		}
		if c.hit && c.getFrom >= 0 {
			line := s.Cache.Lines[c.getFrom]
			return OutcomeLocation, nil, line.Loc, 0, nil
		}
	}

	frame, err := c.buildWireFrame()
	if err != nil {
		return OutcomeError, nil, location.Location{}, 0, wrapErr(session.KindEncodeError, err)
	}

	respSize := wire.WorstCaseResponseSize(maxDLAppData)
	return OutcomeRequest, frame, location.Location{}, respSize, nil
}

// maxDLAppData is the inline downlink-app-data buffer this
// implementation reserves in every request.
const maxDLAppData = 256

// buildWireFrame assembles the Rq body (registration-only in
// UNREGISTERED state, full scan otherwise) and encodes the request
// frame.
func (c *Context) buildWireFrame() ([]byte, error) {
	s := c.session

	body := wire.RqBody{
		CountryCode:  s.Credentials.CountryCode,
		MaxDLAppData: maxDLAppData,
	}

	switch c.authState {
	case session.AuthDisabled:
		body.DeviceID = s.Credentials.DeviceID
		body.APs, body.Cells, body.GNSS = c.beacons[:c.numAP], c.beacons[c.numAP:], c.gnss
	case session.AuthUnregistered:
		body.SKU = s.Credentials.SKU
		// Registration-only: no beacons, just {device_id, tbr{sku, cc}}.
		body.DeviceID = s.Credentials.DeviceID
	case session.AuthRegistered:
		body.TokenID = s.TBR.TokenID
		body.APs, body.Cells, body.GNSS = c.beacons[:c.numAP], c.beacons[c.numAP:], c.gnss
	}

	rqBytes := wire.EncodeRq(body)
	requestClientConf := s.Dynamic.LastConfigTime.IsZero()
	return wire.EncodeRequestFrame(s.Credentials.PartnerID, protocolVersion, requestClientConf, rqBytes, s.Credentials.AESKey[:], wire.RandFunc(s.RandOf))
}

// protocolVersion is the sw_version field carried in every RqHeader.
const protocolVersion = 1
