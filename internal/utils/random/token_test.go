package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeIsURLSafe(t *testing.T) {
	code, err := Code()
	require.NoError(t, err)
	// 8 random bytes encode to 11 unpadded base64url characters.
	assert.Len(t, code, 11)
	assert.NotContains(t, code, "+")
	assert.NotContains(t, code, "/")
	assert.NotContains(t, code, "=")
}

func TestCodeIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := Code()
		require.NoError(t, err)
		require.False(t, seen[code], "generated duplicate code %q", code)
		seen[code] = true
	}
}
