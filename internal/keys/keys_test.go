package keys_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solamate/fundpool/internal/keys"
)

func TestParseIdentityRoundTrip(t *testing.T) {
	var id keys.Identity
	for i := range id {
		id[i] = byte(i)
	}

	parsed, err := keys.ParseIdentity(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseIdentityRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base58", "0OIl+/"},
		{"too short", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := keys.ParseIdentity(tt.input)
			assert.ErrorIs(t, err, keys.ErrInvalidIdentity)
		})
	}
}

func TestParseAddressRejectsWrongLength(t *testing.T) {
	// Valid base58 but decodes to fewer than 32 bytes
	_, err := keys.ParseAddress("3mJr7AoUXx2Wqd")
	assert.ErrorIs(t, err, keys.ErrInvalidAddress)
}

func TestDeriveIsDeterministic(t *testing.T) {
	a := keys.Derive("record", []byte("one"), []byte("two"))
	b := keys.Derive("record", []byte("one"), []byte("two"))
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())
}

func TestDeriveSeparatesNamespaces(t *testing.T) {
	a := keys.Derive("record_a", []byte("same"))
	b := keys.Derive("record_b", []byte("same"))
	assert.NotEqual(t, a, b)
}

func TestDeriveTimedSeparatesTimestamps(t *testing.T) {
	var owner keys.Identity
	owner[0] = 7

	a := keys.DeriveTimed("record", owner, 1700000000)
	b := keys.DeriveTimed("record", owner, 1700000001)
	assert.NotEqual(t, a, b)
}

func TestIdentityTextMarshalling(t *testing.T) {
	var id keys.Identity
	id[31] = 42

	text, err := id.MarshalText()
	require.NoError(t, err)

	var decoded keys.Identity
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
}

func TestLessIsAByteOrder(t *testing.T) {
	var a, b keys.Address
	b[0] = 1

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
}
