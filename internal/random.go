package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	tokenSize    = 32
	minNonceSize = 16
)

// NewToken returns a 256-bit random token, base64url without padding.
func NewToken() (string, error) {
	return randomString(tokenSize)
}

// NewNonce returns size random bytes encoded base64url without padding.
func NewNonce(size int) (string, error) {
	if size < minNonceSize {
		return "", errors.New("nonce size below minimum")
	}
	return randomString(size)
}

// HashToken is the storage key form of a secret token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
