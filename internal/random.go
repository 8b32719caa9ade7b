package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// Fingerprint is the storage form of a refresh token: unpadded base64url of
// its SHA-256 digest. Equal fingerprints imply equal tokens.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RandomString returns n bytes from crypto/rand as unpadded base64url.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid random size")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
