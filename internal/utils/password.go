package utils

import "golang.org/x/crypto/bcrypt"

// MinPasswordLength is the shortest password accepted on signup, reset and
// password change.
const MinPasswordLength = 8

// DefaultBcryptCost is used when no cost is configured.
const DefaultBcryptCost = 12

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
