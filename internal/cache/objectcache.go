package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ObjectCache is the persistent on-disk compiled-artifact cache spec §6
// describes literally: "a single cache root directory containing
// objects/<hash>.o files and no metadata index (the hash is the key;
// presence implies validity)". There is deliberately no index file, no
// embedded database, and no row tying a hash to a namespace/def
// name/size/target — a file existing under its structural hash's name
// *is* the validity check; a stale or orphaned file is harmless per the
// same spec line, since nothing refers to it by anything but its hash.
type ObjectCache struct {
	root    string
	keyring *Keyring // nil disables at-rest encryption
}

// Open creates (if needed) root/objects and returns an ObjectCache
// rooted there. keyring may be nil, in which case objects are stored
// as plain bytes.
func Open(root string, keyring *Keyring) (*ObjectCache, error) {
	objDir := filepath.Join(root, "objects")
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create object directory: %w", err)
	}
	return &ObjectCache{root: root, keyring: keyring}, nil
}

func (c *ObjectCache) path(hash string) string {
	return filepath.Join(c.root, "objects", hash+".o")
}

// Get loads the object stored under hash, decrypting it first if the
// cache has a keyring. ok is false (with a nil error) exactly when no
// file exists under hash, matching spec.md's "presence implies
// validity" contract — a missing file is a cache miss, never an error.
func (c *ObjectCache) Get(hash string) ([]byte, bool, error) {
	data, err := os.ReadFile(c.path(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: read object %s: %w", hash, err)
	}
	if c.keyring != nil {
		data, err = c.keyring.Open([]byte(hash), data)
		if err != nil {
			return nil, false, fmt.Errorf("cache: decrypt object %s: %w", hash, err)
		}
	}
	return data, true, nil
}

// Put writes data under hash, encrypting it first if the cache has a
// keyring. The write is staged to a sibling .tmp file and renamed into
// place, so a reader never observes a partially written object.
func (c *ObjectCache) Put(hash string, data []byte) error {
	if c.keyring != nil {
		sealed, err := c.keyring.Seal([]byte(hash), data)
		if err != nil {
			return fmt.Errorf("cache: encrypt object %s: %w", hash, err)
		}
		data = sealed
	}
	tmp := c.path(hash) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cache: write object %s: %w", hash, err)
	}
	if err := os.Rename(tmp, c.path(hash)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: commit object %s: %w", hash, err)
	}
	return nil
}

// Delete removes the object stored under hash, if any.
func (c *ObjectCache) Delete(hash string) error {
	err := os.Remove(c.path(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
