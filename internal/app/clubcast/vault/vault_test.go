package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "var", "test.key")

	v, err := Open(keyPath)
	require.NoError(t, err)
	require.NotNil(t, v)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEncodeDecode(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "test.key")
	v, err := Open(keyPath)
	require.NoError(t, err)

	opaque, err := v.Encode("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, string(opaque), "hunter2")

	plain, err := v.Decode(opaque)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestDecodeWithReopenedKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "test.key")
	v1, err := Open(keyPath)
	require.NoError(t, err)

	opaque, err := v1.Encode("secret")
	require.NoError(t, err)

	v2, err := Open(keyPath)
	require.NoError(t, err)
	plain, err := v2.Decode(opaque)
	require.NoError(t, err)
	assert.Equal(t, "secret", plain)
}

func TestDecodeWrongKey(t *testing.T) {
	dir := t.TempDir()
	v1, err := Open(filepath.Join(dir, "a.key"))
	require.NoError(t, err)
	v2, err := Open(filepath.Join(dir, "b.key"))
	require.NoError(t, err)

	opaque, err := v1.Encode("secret")
	require.NoError(t, err)

	_, err = v2.Decode(opaque)
	assert.Error(t, err)
}

func TestDecodeCorrupt(t *testing.T) {
	v, err := Open(filepath.Join(t.TempDir(), "test.key"))
	require.NoError(t, err)

	_, err = v.Decode([]byte("too short"))
	assert.Error(t, err)
}
