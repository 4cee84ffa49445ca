// Package crypto derives keys from the configured secret and generates the
// random tokens handed out to users.
package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest token secret the server accepts.
const MinSecretLength = 32

// ErrInvalidKeyLength is returned when a secret or requested key is too short.
var ErrInvalidKeyLength = errors.New("invalid key length")

// Key purposes. Each derived key is bound to one of these so a key leaked
// from one use cannot be replayed in another.
const (
	PurposeSessionToken = "luminosity-session-token"
)

// DeriveKey expands secret into a size-byte key for the given purpose
// using HKDF-SHA256.
func DeriveKey(secret []byte, purpose string, size int) ([]byte, error) {
	if len(secret) < MinSecretLength || size < 16 {
		return nil, ErrInvalidKeyLength
	}
	h := hkdf.New(sha256.New, secret, nil, []byte(purpose))
	out := make([]byte, size)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SigningKey returns the HMAC key used to sign session tokens.
func SigningKey(secret []byte) ([]byte, error) {
	return DeriveKey(secret, PurposeSessionToken, 32)
}
