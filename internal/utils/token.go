package utils

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for reset tokens
	"encoding/hex"  // hex encoding and decoding functions
	"time"
)

// DefaultResetTokenTTL is how long a password reset token stays valid.
const DefaultResetTokenTTL = 10 * time.Minute

// ResetToken is a single-use password reset credential.  Raw goes to the
// user out of band; only Hash is stored next to the user row.
type ResetToken struct {
	Raw  string
	Hash string
	Exp  time.Time
}

// NewResetToken returns a random 32-byte token (64 hex chars), its hash and
// an absolute expiry ttl from now.
func NewResetToken(ttl time.Duration) (ResetToken, error) {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	raw, err := randomHex(32)
	if err != nil {
		return ResetToken{}, err
	}
	return ResetToken{
		Raw:  raw,
		Hash: HashResetToken(raw),
		Exp:  time.Now().UTC().Add(ttl),
	}, nil
}

// HashResetToken returns the SHA-256 hash of the raw reset token as a hex
// string.  The raw token already has 256 bits of entropy, so a plain digest
// is enough to make a leaked column useless.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
