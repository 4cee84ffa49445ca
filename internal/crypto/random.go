package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
)

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// MustRandom returns n random bytes or panics.
func MustRandom(n int) []byte {
	b, err := randomBytes(n)
	if err != nil {
		panic(err)
	}
	return b
}

// RandomToken returns a URL-safe token carrying n random bytes.
func RandomToken(n int) (string, error) {
	b, err := randomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewSecret returns a hex encoded secret suitable for the token_secret
// setting.
func NewSecret() string {
	return hex.EncodeToString(MustRandom(MinSecretLength))
}
