package request

import (
	"time"

	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/cache"
	"github.com/skyloc/embedded-client/pkg/location"
	"github.com/skyloc/embedded-client/pkg/session"
	"github.com/skyloc/embedded-client/pkg/wire"
)

// responseStatus mirrors RsHeader's wire status values. These are this
// implementation's own enumeration of the status byte carried on
// RsHeader, distinct from location.Status, which is the caller-facing
// vocabulary decode_response translates them into.
const (
	wireStatusSuccess    = 0
	wireStatusBadPartner = 1
	wireStatusDecodeErr  = 2
	wireStatusAPIServer  = 3
	wireStatusAuthRetry  = 4
	wireStatusAuthError  = 5
)

// DecodeResponse implements `decode_response`: decrypts,
// parses, applies config overrides, copies the used-AP bitmap back,
// drives the TBR state machine, and inserts the (scan, location) pair
// into the cache.
func (c *Context) DecodeResponse(buf []byte) (location.Location, error) {
	s := c.session

	rs, err := wire.DecodeResponseFrame(buf, s.Credentials.AESKey[:])
	if err != nil {
		return location.Location{}, wrapErr(session.KindDecodeError, err)
	}

	loc := location.Location{
		Lat: rs.Lat, Lon: rs.Lon, HPE: rs.HPE,
		Source: location.Source(rs.Source),
		Status: statusFromWire(rs.Status),
	}
	loc.DLAppData = rs.DLAppData
	s.Dynamic.Apply(rs.Config, currentTime(s.TimeOf))

	switch c.authState {
	case session.AuthUnregistered:
		if rs.Status == wireStatusSuccess && rs.TokenID != 0 {
			s.TBR.Registered(rs.TokenID)
			loc.Status = location.StatusAuthRetry
		}
	case session.AuthRegistered:
		if rs.Status == wireStatusAuthError {
			s.TBR.AuthFailed()
			loc.Status = location.StatusAuthRetry
		} else {
			applyUsedAPs(c.beacons[:c.numAP], rs.UsedAPs)
		}
	case session.AuthDisabled:
		applyUsedAPs(c.beacons[:c.numAP], rs.UsedAPs)
	}

	if len(c.beacons) > 0 {
		c.insertIntoCache(loc)
	}
	return loc, nil
}

func statusFromWire(v uint32) location.Status {
	switch v {
	case wireStatusSuccess:
		return location.StatusSuccess
	case wireStatusBadPartner:
		return location.StatusBadPartner
	case wireStatusDecodeErr:
		return location.StatusDecodeError
	case wireStatusAPIServer:
		return location.StatusAPIServerError
	case wireStatusAuthRetry, wireStatusAuthError:
		return location.StatusAuthRetry
	default:
		return location.StatusUnspecified
	}
}

// applyUsedAPs sets Header's Used property bit (via AP.Prop.Used) for
// every AP whose index is set in the bitmap, copying the decoded
// used-AP bitmap back into the request context.
func applyUsedAPs(aps []*beacon.Beacon, bitmap uint64) {
	for i, a := range aps {
		if bitmap&(1<<uint(i)) != 0 {
			a.AP.Prop.Used = true
		}
	}
}

// insertIntoCache writes into save_to if set by the cache-match pass,
// else the oldest cacheline; it clears instead of writing when the
// decoded status was not SUCCESS.
func (c *Context) insertIntoCache(loc location.Location) {
	s := c.session

	idx := c.saveTo
	if idx < 0 {
		idx = s.Cache.OldestIndex()
	}

	if loc.Status != location.StatusSuccess {
		s.Cache.Clear(idx)
		return
	}

	for _, a := range c.beacons[:c.numAP] {
		a.AP.Prop.InCache = true
	}

	line := cache.Line{
		NumBeacons: len(c.beacons),
		NumAP:      c.numAP,
		Time:       currentTime(s.TimeOf),
		Beacons:    append([]*beacon.Beacon(nil), c.beacons...),
		GNSS:       c.gnss,
		Loc:        loc,
	}
	s.Cache.Put(idx, line)
}

func currentTime(timeOf session.TimeFunc) time.Time {
	if timeOf == nil {
		return time.Time{}
	}
	return timeOf()
}
