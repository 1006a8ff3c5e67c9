// Package token signs short opaque values, such as the session id carried in
// the user cookie, with HMAC-SHA256.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const separator = "."

// ErrInvalidSignature is returned by Verify for values that were not signed
// with this key or were tampered with.
var ErrInvalidSignature = errors.New("token: invalid signature")

// Signer holds the HMAC key.
type Signer struct {
	key []byte
}

// NewSigner builds a signer from a configured secret.
func NewSigner(secret string) (*Signer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("token: secret must be at least 16 bytes, got %d", len(secret))
	}
	return &Signer{key: []byte(secret)}, nil
}

// NewRandomSigner generates a 32-byte key. Values it signed stop verifying
// once the process restarts.
func NewRandomSigner() (*Signer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("token: cannot generate key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Sign returns "<value>.<signature>".
func (s *Signer) Sign(value string) string {
	return value + separator + s.signature(value)
}

// Verify splits a signed value and returns the original value when the
// signature matches.
func (s *Signer) Verify(signed string) (string, error) {
	i := strings.LastIndex(signed, separator)
	if i <= 0 || i == len(signed)-1 {
		return "", ErrInvalidSignature
	}
	value, sig := signed[:i], signed[i+1:]

	actual, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", ErrInvalidSignature
	}
	if !hmac.Equal(s.mac(value), actual) {
		return "", ErrInvalidSignature
	}
	return value, nil
}

func (s *Signer) signature(value string) string {
	return base64.RawURLEncoding.EncodeToString(s.mac(value))
}

func (s *Signer) mac(value string) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(value))
	return m.Sum(nil)
}
