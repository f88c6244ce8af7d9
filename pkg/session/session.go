package session

import (
	"fmt"
	"time"

	"github.com/skyloc/embedded-client/pkg/cache"
	"github.com/skyloc/embedded-client/pkg/config"
	"github.com/skyloc/embedded-client/pkg/plugin"
)

// HeaderMagic marks a valid session/request-context header.
const HeaderMagic = 0xD1967806

// LogFunc is the host-supplied logging sink, Sky_loggerfn_t. The core
// never decides how logs are written; internal/logger.Logger.CallbackFor
// adapts a real sink into this shape.
type LogFunc func(level LogLevel, msg string)

// LogLevel mirrors Sky_log_level_t.
type LogLevel int

const (
	LogCritical LogLevel = iota + 1
	LogError
	LogWarning
	LogDebug
)

// TimeFunc is the host-supplied wall clock, Sky_timefn_t. Returning the
// zero time means "no usable clock".
type TimeFunc func() time.Time

// RandFunc is the host-supplied random-byte source, Sky_randfn_t, used
// to generate AES-CBC IVs. An error here is escalated to
// BAD_PARAMETERS, never silently ignored.
type RandFunc func(buf []byte) error

// Header is the magic/size/time/crc quadruple that opens both the
// session buffer and the request-context buffer.
type Header struct {
	Magic uint32
	Size  uint32
	Time  uint32
	CRC32 uint32
}

// Session is Sky_sctx_t: the process-scoped state that survives across
// request contexts.
type Session struct {
	Header      Header
	Credentials Credentials
	Dynamic     config.Dynamic
	TBR         TBR
	Cache       *cache.Store
	Chain       *plugin.Chain

	MinLevel LogLevel
	Logf     LogFunc
	TimeOf   TimeFunc
	RandOf   RandFunc

	closed bool
}

// Open implements the `open` operation. If state is non-nil it is
// validated and adopted (falling back to a fresh session on any
// mismatch); otherwise a new session is initialized. Open always
// constructs a session from the given state; a host holding a live
// Session handle should call Reopen instead to get the "second open is
// idempotent" check against ALREADY_OPEN.
func Open(creds Credentials, state []byte, chain *plugin.Chain, minLevel LogLevel, logf LogFunc, randf RandFunc, timef TimeFunc) (*Session, error) {
	if !creds.valid() {
		return nil, newErr(KindBadParameters)
	}
	if chain == nil {
		chain = plugin.Default()
	}
	if randf == nil || timef == nil {
		return nil, newErr(KindBadParameters)
	}
	creds = creds.normalized()

	if len(state) > 0 {
		if s, err := Unmarshal(state, chain); err == nil {
			s.Chain = chain
			s.MinLevel, s.Logf, s.TimeOf, s.RandOf = minLevel, logf, timef, randf
			return s, nil
		}
		// Fall through: corrupt/incompatible state reinitializes from
		// scratch.
	}

	s := &Session{
		Credentials: creds,
		Dynamic:     config.DefaultDynamic(),
		TBR:         NewTBR(creds.SKU),
		Cache:       cache.NewStore(),
		Chain:       chain,
		MinLevel:    minLevel,
		Logf:        logf,
		TimeOf:      timef,
		RandOf:      randf,
	}
	s.Header = Header{Magic: HeaderMagic, Size: uint32(s.SizeofState())}
	return s, nil
}

// ReopenSame reports whether creds matches the session's current
// credentials, implementing the "second open is idempotent" rule.
func (s *Session) ReopenSame(creds Credentials) bool {
	return s.Credentials.equal(creds.normalized())
}

// Reopen implements the idempotent-second-open check for a host holding
// a live Session handle: identical credentials are a no-op, anything
// else fails ALREADY_OPEN rather than silently reinitializing state out
// from under the caller.
func (s *Session) Reopen(creds Credentials) error {
	if s.closed {
		return newErr(KindNeverOpen)
	}
	if !creds.valid() {
		return newErr(KindBadParameters)
	}
	if s.ReopenSame(creds) {
		return nil
	}
	return newErr(KindAlreadyOpen)
}

// Close marks the session closed and returns the serialized state
// buffer the host should persist, implementing the `close` operation.
func (s *Session) Close() ([]byte, error) {
	if s.closed {
		return nil, newErr(KindClose)
	}
	s.closed = true
	buf, err := s.Marshal()
	if err != nil {
		return nil, wrapErr(KindClose, err)
	}
	return buf, nil
}

// SizeofState returns the byte size of the serialized state buffer the
// host must allocate, sized for the compile-time cache.Size cachelines
// and config.MaxTotalBeacons beacons per line.
func (s *Session) SizeofState() int {
	return sizeofHeader + sizeofCredentials + sizeofDynamic + sizeofTBR +
		4 + cache.Size*sizeofCacheline
}

// SizeofWorkspace returns the byte size of a request-context buffer,
// independent of any session.
func SizeofWorkspace() int {
	return sizeofHeader + 4 + int(config.MaxTotalBeacons)*sizeofBeaconRecord + sizeofGNSS
}

func (s *Session) log(level LogLevel, format string, args ...interface{}) {
	if s.Logf == nil || level > s.MinLevel {
		return
	}
	s.Logf(level, fmt.Sprintf(format, args...))
}

// SetOption applies every dynamic-config field present in o, each
// bounds-checked by config.Dynamic.Apply, implementing `set_option`. It
// fails BAD_PARAMETERS when no field was applied.
func (s *Session) SetOption(o config.Override) error {
	at := s.TimeOf()
	if s.Dynamic.Apply(o, at) == 0 {
		return newErr(KindBadParameters)
	}
	return nil
}

// GetOption returns the full current dynamic config, implementing
// `get_option`.
func (s *Session) GetOption() config.Dynamic {
	return s.Dynamic
}
