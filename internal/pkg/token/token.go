// Package token mints and screens the opaque bearer tokens that identify
// check-in sessions. A token is pure random material: it encodes nothing
// about the course, session, or expiry, and knowing one token gives no
// purchase on guessing another.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// rawLen is the number of random bytes per token: 192 bits of entropy,
// comfortably above the 128-bit floor for an unguessable capability.
const rawLen = 24

// EncodedLen is the length of every minted token string.
const EncodedLen = 32 // base64.RawURLEncoding.EncodedLen(rawLen)

// Mint returns a new URL-safe session token drawn from crypto/rand.
func Mint() (string, error) {
	b := make([]byte, rawLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// IsWellFormed reports whether s has the exact shape of a minted token.
// It exists so garbage input can be rejected before any store lookup;
// it says nothing about whether the token was ever issued.
func IsWellFormed(s string) bool {
	if len(s) != EncodedLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
