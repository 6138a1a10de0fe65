package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectCachePutAndGet(t *testing.T) {
	c, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, c.Put("hash1", []byte{0x7f, 0x45, 0x4c, 0x46}))

	data, ok, err := c.Get("hash1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x7f, 0x45, 0x4c, 0x46}, data)
}

func TestObjectCacheGetMiss(t *testing.T) {
	c, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	_, ok, err := c.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObjectCachePutReplacesExisting(t *testing.T) {
	c, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, c.Put("hash1", []byte("v1")))
	require.NoError(t, c.Put("hash1", []byte("v2")))

	data, ok, err := c.Get("hash1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), data)
}

func TestObjectCacheDelete(t *testing.T) {
	c, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, c.Put("hash1", []byte("x")))
	require.NoError(t, c.Delete("hash1"))

	_, ok, err := c.Get("hash1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObjectCacheHasNoMetadataIndex(t *testing.T) {
	root := t.TempDir()
	c, err := Open(root, nil)
	require.NoError(t, err)
	require.NoError(t, c.Put("abc123", []byte("object bytes")))

	entries, err := filepath.Glob(filepath.Join(root, "objects", "*"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(root, "objects", "abc123.o"), entries[0])
}

func TestObjectCacheRoundTripsThroughEncryption(t *testing.T) {
	kr, err := OpenKeyring(filepath.Join(t.TempDir(), "keyring.json"), []byte("a very secret master key"), AlgoXChaCha20Poly1305)
	require.NoError(t, err)

	c, err := Open(t.TempDir(), kr)
	require.NoError(t, err)
	require.NoError(t, c.Put("hash1", []byte("plaintext object")))

	data, ok, err := c.Get("hash1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("plaintext object"), data)
}

func TestObjectCacheEncryptedObjectsAreNotPlaintextOnDisk(t *testing.T) {
	root := t.TempDir()
	kr, err := OpenKeyring(filepath.Join(t.TempDir(), "keyring.json"), []byte("a very secret master key"), AlgoAES256GCM)
	require.NoError(t, err)

	c, err := Open(root, kr)
	require.NoError(t, err)
	require.NoError(t, c.Put("hash1", []byte("sensitive compiled bytes")))

	unencrypted := &ObjectCache{root: root}
	data, ok, err := unencrypted.Get("hash1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(data), "sensitive compiled bytes")
}

func TestKeyringPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")
	master := []byte("another master secret")

	kr1, err := OpenKeyring(path, master, AlgoXChaCha20Poly1305)
	require.NoError(t, err)
	sealed, err := kr1.Seal([]byte("h"), []byte("payload"))
	require.NoError(t, err)

	kr2, err := OpenKeyring(path, master, AlgoXChaCha20Poly1305)
	require.NoError(t, err)
	opened, err := kr2.Open([]byte("h"), sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), opened)
}

func TestKeyringRotateRetainsOldVersionForDecrypt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")
	master := []byte("rotate me")

	kr, err := OpenKeyring(path, master, AlgoAES256GCM)
	require.NoError(t, err)
	sealed, err := kr.Seal([]byte("h"), []byte("old key payload"))
	require.NoError(t, err)

	require.NoError(t, kr.Rotate(AlgoXChaCha20Poly1305))

	opened, err := kr.Open([]byte("h"), sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("old key payload"), opened)
}
