package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileModeString(t *testing.T) {
	assert.Equal(t, "100644", Regular.String())
	assert.Equal(t, "40000", Dir.String())
	assert.Equal(t, "120000", Symlink.String())
	assert.Equal(t, "100755", Executable.String())
	assert.Equal(t, "160000", Submodule.String())
}

func TestParseFileMode(t *testing.T) {
	m, err := ParseFileMode("100644")
	require.NoError(t, err)
	assert.Equal(t, Regular, m)

	m, err = ParseFileMode("40000")
	require.NoError(t, err)
	assert.Equal(t, Dir, m)

	_, err = ParseFileMode("not-octal")
	assert.ErrorIs(t, err, ErrMalformedObject)
}

func TestFileModePredicates(t *testing.T) {
	assert.True(t, Dir.IsDir())
	assert.False(t, Regular.IsDir())

	assert.True(t, Regular.IsRegular())
	assert.True(t, Deprecated.IsRegular())
	assert.False(t, Executable.IsRegular())
	assert.False(t, Symlink.IsRegular())
}
