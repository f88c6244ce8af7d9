package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MaxSignedToken bounds the length of the signed token string embedded
// in the persisted session state. An HS256 JWT carrying only iat/tid
// claims runs well under 150 bytes; this leaves headroom.
const MaxSignedToken = 256

// AuthState is the Sky_tbr_state_t authentication state machine.
type AuthState int

const (
	// AuthDisabled is legacy mode: no SKU configured, every request
	// carries device_id directly.
	AuthDisabled AuthState = iota
	// AuthUnregistered: SKU configured but no token yet. The next
	// finalize_request produces a registration-only request.
	AuthUnregistered
	// AuthRegistered: requests carry token_id and scan data.
	AuthRegistered
)

func (s AuthState) String() string {
	switch s {
	case AuthUnregistered:
		return "UNREGISTERED"
	case AuthRegistered:
		return "REGISTERED"
	default:
		return "DISABLED"
	}
}

// tokenClaims is the structure signed into the persisted token
// representation. The wire protocol itself only ever carries the raw
// token_id integer; wrapping it in a signed JWT gives the persisted
// session buffer (pkg/persist) a tamper-evident token record instead
// of a bare integer.
type tokenClaims struct {
	jwt.RegisteredClaims
	TokenID uint32 `json:"tid"`
}

// TBR holds the authentication state machine's mutable fields.
type TBR struct {
	State   AuthState
	TokenID uint32
	// NeedsTime marks the AUTH_NEEDS_TIME backoff condition:
	// while set, new_request requires a usable clock.
	NeedsTime bool
}

// NewTBR returns the initial state for a session: DISABLED if sku is
// empty, else UNREGISTERED.
func NewTBR(sku string) TBR {
	if sku == "" {
		return TBR{State: AuthDisabled}
	}
	return TBR{State: AuthUnregistered}
}

// Registered transitions to REGISTERED on a successful registration
// response.
func (t *TBR) Registered(tokenID uint32) {
	t.TokenID = tokenID
	t.State = AuthRegistered
	t.NeedsTime = false
}

// AuthFailed transitions back to UNREGISTERED on an AUTH_ERROR
// response, clearing the stale token.
func (t *TBR) AuthFailed() {
	t.TokenID = 0
	t.State = AuthUnregistered
}

// signedToken returns the signed representation of s's current token
// for persistence, or the empty string if no token is held.
func (s *Session) signedToken(issuedAt time.Time) (string, error) {
	if s.TBR.TokenID == 0 {
		return "", nil
	}
	return SignToken(s.TBR.TokenID, s.Credentials.AESKey[:], issuedAt)
}

// adoptSignedToken recovers and verifies a persisted signed token,
// setting s.TBR.TokenID on success. An empty signed string means no
// token was persisted, leaving TokenID at its zero value.
func (s *Session) adoptSignedToken(signed string) error {
	if signed == "" {
		return nil
	}
	tokenID, err := ParseToken(signed, s.Credentials.AESKey[:])
	if err != nil {
		return err
	}
	s.TBR.TokenID = tokenID
	return nil
}

// SignToken produces a signed, tamper-evident representation of the
// current token for persistence, keyed by the session's AES key (reused
// as an HMAC key rather than introducing a second secret).
func SignToken(tokenID uint32, key []byte, issuedAt time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
		TokenID: tokenID,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken recovers a token_id from its signed representation,
// verifying the signature against key.
func ParseToken(signed string, key []byte) (uint32, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	return claims.TokenID, nil
}
