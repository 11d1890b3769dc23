package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mintgate/pkg/domain-errors"
)

// TestParsePrincipal_Invariants validates the parsing invariant:
// "principals are non-empty, bounded, printable identifiers"
//
// Justification: This is a pure function enforcing a domain invariant
// at trust boundaries.
func TestParsePrincipal_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePrincipal("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects whitespace", func(t *testing.T) {
		_, err := ParsePrincipal("0xabc def")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects control characters", func(t *testing.T) {
		_, err := ParsePrincipal("0xabc\x00")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParsePrincipal(strings.Repeat("a", MaxPrincipalLength+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts address-like identifiers", func(t *testing.T) {
		p, err := ParsePrincipal("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		require.NoError(t, err)
		assert.Equal(t, Principal("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"), p)
		assert.False(t, p.IsNil())
	})
}

func TestParseTokenID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTokenID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects negative and non-numeric", func(t *testing.T) {
		for _, in := range []string{"-1", "abc", "1.5", "0x10"} {
			_, err := ParseTokenID(in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "input %q", in)
		}
	})

	t.Run("round-trips through String", func(t *testing.T) {
		id, err := ParseTokenID("18446744073709551615")
		require.NoError(t, err)
		assert.Equal(t, "18446744073709551615", id.String())
	})
}
