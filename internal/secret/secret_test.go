package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDefaultLength(t *testing.T) {
	t.Parallel()

	got, err := Generator{}.Generate()
	require.NoError(t, err)
	assert.Len(t, got, DefaultLength)
}

func TestGenerateCustomLength(t *testing.T) {
	t.Parallel()

	got, err := Generator{Length: 64}.Generate()
	require.NoError(t, err)
	assert.Len(t, got, 64)
}

func TestGenerateAlphabet(t *testing.T) {
	t.Parallel()

	got, err := Generator{}.Generate()
	require.NoError(t, err)

	for _, r := range got {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected character %q", r)
	}
}

func TestGenerateIsRandom(t *testing.T) {
	t.Parallel()

	first, err := Generator{}.Generate()
	require.NoError(t, err)

	second, err := Generator{}.Generate()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
