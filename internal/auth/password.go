package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the cost the original accounts were hashed with.
const DefaultCost = 10

// HashPassword hashes the password with bcrypt. A cost outside bcrypt's
// range falls back to DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsHashError reports whether err came from bcrypt rejecting the input, for
// example a password longer than 72 bytes.
func IsHashError(err error) bool {
	return errors.Is(err, bcrypt.ErrPasswordTooLong)
}
