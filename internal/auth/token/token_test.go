package token

import (
	"encoding/base64"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	t.Run("carries prefix and 32 random bytes", func(t *testing.T) {
		tok := NewSessionToken()
		require.True(t, strings.HasPrefix(tok, SessionTokenPrefix))

		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(tok, SessionTokenPrefix))
		require.NoError(t, err)
		assert.Len(t, raw, 32)
	})

	t.Run("values do not repeat", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			tok := NewSessionToken()
			_, dup := seen[tok]
			require.False(t, dup)
			seen[tok] = struct{}{}
		}
	})
}

func TestNewNumericChallenge(t *testing.T) {
	for range 5000 {
		code := NewNumericChallenge()
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("123456", "123456"))
	assert.False(t, Equal("123456", "123457"))
	assert.False(t, Equal("123456", "12345"))
	assert.False(t, Equal("123456", ""))
}

func TestRandomGenerator(t *testing.T) {
	var g Generator = Random{}
	assert.True(t, strings.HasPrefix(g.SessionToken(), SessionTokenPrefix))
	assert.Len(t, g.NumericChallenge(), 6)
}
