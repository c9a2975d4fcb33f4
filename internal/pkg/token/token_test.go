package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMint_ShapeAndWellFormed(t *testing.T) {
	tok, err := Mint()
	require.NoError(t, err)
	assert.Len(t, tok, EncodedLen)
	assert.True(t, IsWellFormed(tok))
}

func TestMint_NoCollisions(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := Mint()
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token minted: %s", tok)
		seen[tok] = struct{}{}
	}
}

func TestIsWellFormed_RejectsGarbage(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "abc"},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}, // 33 chars
		{"standard base64 padding", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa="},
		{"standard base64 charset", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa+/"},
		{"whitespace", "aaaaaaaaaaaaaaa aaaaaaaaaaaaaaaa"},
		{"sql-ish", "' OR 1=1 --                     "},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.False(t, IsWellFormed(c.input))
		})
	}
}

func TestIsWellFormed_AcceptsFullCharset(t *testing.T) {
	assert.True(t, IsWellFormed("ABCXYZabcxyz0123456789-_aaaaaaaa"))
}
