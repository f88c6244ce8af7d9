// Package session implements Sky_sctx_t: the process-scoped state that
// survives across request contexts — credentials, dynamic config, the
// plugin chain, the cache store, and the TBR authentication state — and
// the session lifecycle operations over it.
package session

import "errors"

// Kind enumerates the error kinds the library can return. It never
// panics; every fallible operation returns one of these instead, as an
// *Error carrying the underlying cause when there is one.
type Kind int

const (
	KindNone Kind = iota
	KindNeverOpen
	KindAlreadyOpen
	KindBadParameters
	KindTooMany
	KindBadWorkspace
	KindBadState
	KindBadTime
	KindEncodeError
	KindDecodeError
	KindResourceUnavailable
	KindClose
	KindBadKey
	KindNoBeacons
	KindAddCache
	KindGetCache
	KindLocationUnknown
	KindServerError
	KindNoPlugin
	KindServiceDenied
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindNeverOpen:
		return "NEVER_OPEN"
	case KindAlreadyOpen:
		return "ALREADY_OPEN"
	case KindBadParameters:
		return "BAD_PARAMETERS"
	case KindTooMany:
		return "TOO_MANY"
	case KindBadWorkspace:
		return "BAD_WORKSPACE"
	case KindBadState:
		return "BAD_STATE"
	case KindBadTime:
		return "BAD_TIME"
	case KindEncodeError:
		return "ENCODE_ERROR"
	case KindDecodeError:
		return "DECODE_ERROR"
	case KindResourceUnavailable:
		return "RESOURCE_UNAVAILABLE"
	case KindClose:
		return "CLOSE"
	case KindBadKey:
		return "BAD_KEY"
	case KindNoBeacons:
		return "NO_BEACONS"
	case KindAddCache:
		return "ADD_CACHE"
	case KindGetCache:
		return "GET_CACHE"
	case KindLocationUnknown:
		return "LOCATION_UNKNOWN"
	case KindServerError:
		return "SERVER_ERROR"
	case KindNoPlugin:
		return "NO_PLUGIN"
	case KindServiceDenied:
		return "SERVICE_DENIED"
	case KindAuth:
		return "AUTH"
	default:
		return "NONE"
	}
}

// Error pairs a Kind with the underlying cause, if any.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Cause.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(k Kind) error { return &Error{Kind: k} }

func wrapErr(k Kind, cause error) error { return &Error{Kind: k, Cause: cause} }

// As is a convenience wrapper over errors.As for Kind lookups.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}
