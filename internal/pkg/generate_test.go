package pkg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessCode(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		code := GenerateAccessCode()

		require.Len(t, code, accessCodeLength)
		for _, char := range code {
			require.True(t, strings.ContainsRune(accessCodeAlphabet, char), "unexpected character %q", char)
		}

		seen[code] = struct{}{}
	}

	// Collisions in a hundred draws would point at a broken generator.
	assert.Greater(t, len(seen), 90)
}

func TestGenerateSessionID(t *testing.T) {
	first := GenerateSessionID()
	second := GenerateSessionID()

	require.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
