package internal

import (
	"crypto/rand"
	"encoding/base64"
)

const placeholderSecretSize = 32

// NewPlaceholderSecret returns a random base64url secret used as the
// credential of subjects that only ever sign in through an OAuth provider.
// Nobody learns the value; only its hash is stored.
func NewPlaceholderSecret() (string, error) {
	var raw [placeholderSecretSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
