package blob

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	key, err := store.Save("photo.jpg", bytes.NewReader([]byte("jpeg bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, "_photo.jpg"))

	rc, err := store.Open(key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, []byte("jpeg bytes"), data)

	require.NoError(t, store.Delete(key))
	_, err = store.Open(key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(key), ErrNotFound)
}

func TestDiskStoreKeysNeverCollide(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save("cv.pdf", bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	b, err := store.Save("cv.pdf", bytes.NewReader([]byte("second")))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDiskStoreStripsPathTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	key, err := store.Save("../../etc/passwd", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, "_passwd"))
	assert.NotContains(t, key, "..")
}
