// Package id generates random identifiers for local use.
package id

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"math/big"
	"strings"
)

// NewID returns a lowercase base32-encoded random identifier with v4 UUID
// version and variant bits, 26 characters long.
func NewID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	// RFC 4122 variant and version bits for a v4 UUID.
	raw[6] = (raw[6] & 0x0f) | 0x40
	raw[8] = (raw[8] & 0x3f) | 0x80

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return strings.ToLower(encoded), nil
}

const installIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// InstallIDLength is the number of base36 digits in an install id.
const InstallIDLength = 16

// NewInstallID returns a random base36 string identifying one installation.
// It is generated once, persisted locally, and reused on later launches so
// the identity service recovers the same participant.
func NewInstallID() (string, error) {
	var b strings.Builder
	b.Grow(InstallIDLength)
	max := big.NewInt(int64(len(installIDAlphabet)))
	for i := 0; i < InstallIDLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		b.WriteByte(installIDAlphabet[n.Int64()])
	}
	return b.String(), nil
}
