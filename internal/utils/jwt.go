package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"  // sentinel errors for token rejections
	"fmt"     // wrapping of the sentinel errors
	"strconv" // decimal encoding of the subject claim
	"time"    // issue and expiry timestamps

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Session token rejections.  Every parse failure wraps ErrTokenInvalid so
// callers that do not care about the reason can match on it alone.
var (
	ErrTokenInvalid   = errors.New("invalid session token")
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrTokenInvalid)
	ErrTokenSignature = fmt.Errorf("%w: bad signature", ErrTokenInvalid)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrTokenInvalid)
)

// SessionToken is a signed JWT together with its expiry.  The token is
// sent back to the client and presented as `Authorization: Bearer <token>`.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	UserID   uint64
	Role     string
	IssuedAt time.Time
	Expires  time.Time
}

// sessionClaims is the wire form of the token payload: the registered
// claims (sub, iat, exp) plus the user's role.
type sessionClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewSessionToken builds and signs an HS256 JWT for a user.  The subject
// claim carries the user ID in decimal form; role is optional.
func NewSessionToken(secret string, userID uint64, role string, ttl time.Duration) (SessionToken, error) {
	// Issue and expiry are both taken from one UTC clock reading.
	now := time.Now().UTC()
	exp := now.Add(ttl)
	// The subject is the decimal user ID, matching what ParseSessionToken
	// expects to read back.
	claims := sessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	// Sign with HS256 and the shared secret to obtain the compact string.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies signature and expiry of raw and returns its
// claims.  Failures are reported as one of the ErrToken* values.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	var claims sessionClaims
	// Only HS256 is accepted; exp must be present and iat may not lie in
	// the future.
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	// Map the library's errors onto our own sentinels.
	switch {
	case err == nil && tok.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return SessionClaims{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return SessionClaims{}, ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return SessionClaims{}, ErrTokenMalformed
	default:
		return SessionClaims{}, ErrTokenInvalid
	}

	// A zero or non-numeric subject cannot name a user.
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return SessionClaims{}, ErrTokenMalformed
	}
	// Copy the verified values out of the wire struct.
	out := SessionClaims{UserID: id, Role: claims.Role}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.Expires = claims.ExpiresAt.Time
	}
	return out, nil
}
