// Package request implements Sky_rctx_t: the bounded, single-use
// builder that accepts beacons one at a time, keeps them ordered and
// deduplicated through the plugin chain, and finalizes into either a
// cache hit or a wire-encoded request.
package request

import (
	"fmt"
	"time"

	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/cache"
	"github.com/skyloc/embedded-client/pkg/plugin"
	"github.com/skyloc/embedded-client/pkg/session"
)

// TimestampFloor is TIMESTAMP_2019_03_01: a
// scan_timestamp at or before this is treated as not provided.
const TimestampFloor = 1551398400 // 2019-03-01T00:00:00Z, Unix seconds

// Context is Sky_rctx_t. It holds a non-owning reference to its
// session and exclusively owns its beacon vector for its lifetime.
type Context struct {
	session *session.Session

	openTime time.Time
	beacons  []*beacon.Beacon
	numAP    int
	gnss     beacon.GNSS

	getFrom int
	saveTo  int
	hit     bool

	authState session.AuthState
}

// New implements `new_request`: derives auth_state from
// the session, sets GNSS to unknown, and fails SERVICE_DENIED if the
// session needs a usable clock it doesn't have.
func New(s *session.Session) (*Context, error) {
	if s == nil {
		return nil, newErr(session.KindNeverOpen)
	}
	now := s.TimeOf()
	if s.TBR.NeedsTime && now.IsZero() {
		return nil, newErr(session.KindServiceDenied)
	}

	ctx := &Context{
		session:   s,
		openTime:  now,
		gnss:      beacon.UnknownGNSS(),
		getFrom:   -1,
		saveTo:    -1,
		authState: s.TBR.State,
	}
	return ctx, nil
}

func newErr(k session.Kind) error { return &session.Error{Kind: k} }

func wrapErr(k session.Kind, cause error) error { return &session.Error{Kind: k, Cause: cause} }

// Beacons, NumAP, SetNumAP, InsertAt, RemoveAt, CacheMatchPercents,
// CacheNegRSSIThreshold, MaxVAPPerAP, GNSS, Cache, SetCacheResult, and
// Logf satisfy pkg/plugin's RequestContext interface structurally,
// letting the plugin tables operate on a Context without pkg/plugin
// importing this package.

func (c *Context) Beacons() []*beacon.Beacon { return c.beacons }

func (c *Context) NumAP() int { return c.numAP }

func (c *Context) SetNumAP(n int) { c.numAP = n }

func (c *Context) InsertAt(i int, b *beacon.Beacon) {
	c.beacons = append(c.beacons, nil)
	copy(c.beacons[i+1:], c.beacons[i:])
	c.beacons[i] = b
}

func (c *Context) RemoveAt(i int) (*beacon.Beacon, error) {
	if i < 0 || i >= len(c.beacons) {
		return nil, fmt.Errorf("request: index %d out of range", i)
	}
	b := c.beacons[i]
	c.beacons = append(c.beacons[:i], c.beacons[i+1:]...)
	if i < c.numAP {
		c.numAP--
	}
	return b, nil
}

func (c *Context) CacheMatchPercents() (all, used uint32) {
	d := c.session.Dynamic
	return d.CacheMatchAllPercent, d.CacheMatchUsedPercent
}

func (c *Context) CacheNegRSSIThreshold() int16 {
	return int16(c.session.Dynamic.CacheNegRSSIThreshold)
}

func (c *Context) MaxVAPPerAP() int {
	return int(c.session.Dynamic.MaxVAPPerAP)
}

func (c *Context) GNSS() beacon.GNSS { return c.gnss }

func (c *Context) Cache() plugin.CacheView { return cacheView{c.session.Cache} }

func (c *Context) SetCacheResult(getFrom, saveTo int, hit bool) {
	c.getFrom, c.saveTo, c.hit = getFrom, saveTo, hit
}

func (c *Context) Logf(format string, args ...interface{}) {
	if c.session.Logf == nil {
		return
	}
	c.session.Logf(session.LogDebug, fmt.Sprintf(format, args...))
}

// cacheView adapts *cache.Store to plugin.CacheView without pkg/cache
// needing to import pkg/plugin.
type cacheView struct{ store *cache.Store }

func (v cacheView) Len() int { return v.store.Len() }

func (v cacheView) Line(i int) plugin.CacheLine {
	l := v.store.Lines[i]
	return plugin.CacheLine{
		Empty:   l.Empty(),
		NumAP:   l.NumAP,
		Beacons: l.Beacons,
		GNSS:    l.GNSS,
	}
}
