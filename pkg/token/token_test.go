package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner("0123456789abcdef0123")
	require.NoError(t, err)

	signed := s.Sign("0190c6e2-7d4b-7c1a-9f3e-1a2b3c4d5e6f")
	got, err := s.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "0190c6e2-7d4b-7c1a-9f3e-1a2b3c4d5e6f", got)
}

func TestSigner_Rejects(t *testing.T) {
	s, err := NewSigner("0123456789abcdef0123")
	require.NoError(t, err)
	other, err := NewRandomSigner()
	require.NoError(t, err)

	signed := s.Sign("user-1")
	tampered := strings.Replace(signed, "user-1", "user-2", 1)

	for name, value := range map[string]string{
		"empty":          "",
		"no separator":   "user-1",
		"empty sig":      "user-1.",
		"bad base64":     "user-1.!!!",
		"tampered value": tampered,
		"foreign key":    other.Sign("user-1"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(value)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestNewSigner_ShortSecret(t *testing.T) {
	_, err := NewSigner("short")
	assert.Error(t, err)
}
