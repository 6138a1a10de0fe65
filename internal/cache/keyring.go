// Package cache implements the persistent (on-disk) compiled-artifact
// cache spec §4.5/§6 describes: a single cache root directory holding
// hash-named object files, with no metadata index alongside them.
package cache

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Algorithm names a supported at-rest cipher, mirroring the teacher's
// internal/db/encrypt.go Encryptor.Algo() values.
type Algorithm string

const (
	AlgoXChaCha20Poly1305 Algorithm = "xchacha20poly1305"
	AlgoAES256GCM         Algorithm = "aesgcm"
)

// aead is the minimal seal/open contract both ciphers satisfy, narrowed
// from the teacher's Encryptor interface to the two operations Keyring
// actually calls.
type aead interface {
	Seal(key, nonce, plaintext, aad []byte) []byte
	Open(key, nonce, ciphertext, aad []byte) ([]byte, error)
	NonceSize() int
	KeyLen() int
}

type xchacha20Poly1305 struct{}

func (xchacha20Poly1305) Seal(key, nonce, plaintext, aad []byte) []byte {
	c, _ := chacha20poly1305.NewX(key)
	return c.Seal(nil, nonce, plaintext, aad)
}

func (xchacha20Poly1305) Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	c, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return c.Open(nil, nonce, ciphertext, aad)
}

func (xchacha20Poly1305) NonceSize() int { return chacha20poly1305.NonceSizeX }
func (xchacha20Poly1305) KeyLen() int    { return chacha20poly1305.KeySize }

type aesGCM struct{}

func (aesGCM) Seal(key, nonce, plaintext, aad []byte) []byte {
	block, _ := aes.NewCipher(key)
	gcm, _ := cipher.NewGCM(block)
	return gcm.Seal(nil, nonce, plaintext, aad)
}

func (aesGCM) Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, aad)
}

func (aesGCM) NonceSize() int { return 12 }
func (aesGCM) KeyLen() int    { return 32 }

func cipherFor(algo Algorithm) (aead, error) {
	switch algo {
	case AlgoXChaCha20Poly1305, "":
		return xchacha20Poly1305{}, nil
	case AlgoAES256GCM:
		return aesGCM{}, nil
	default:
		return nil, fmt.Errorf("cache: unsupported encryption algorithm %q", algo)
	}
}

// keyVersion is one generation of a derived cache-encryption key. Only
// its id, algorithm, derivation salt and creation time are ever written
// to disk; the
// key material itself is re-derived from the master secret on every
// load via deriveKey, the same HKDF-SHA256 scheme the teacher's
// internal/db/encrypt.go uses (deriveKey there), so a leaked manifest
// file on its own reveals nothing.
type keyVersion struct {
	ID        string    `json:"id"`
	Algo      Algorithm `json:"algo"`
	Salt      string    `json:"salt"`
	CreatedAt int64     `json:"created_at"`

	key []byte
}

type manifest struct {
	Active   string       `json:"active"`
	Versions []keyVersion `json:"versions"`
}

// Keyring derives, persists, and rotates the key(s) used to encrypt and
// decrypt cache blobs at rest. It is the adaptation of the teacher's
// internal/db/encrypt.go key-rotation keyring to this package's object
// cache: the same "keep retired keys around so older ciphertext still
// decrypts" model, but the manifest it persists (keyring.json, a flat
// file next to the object cache, not a SQL keys table) is metadata about
// *keys*, not about cached objects, so it does not reintroduce the
// object index spec.md §6 rules out for compiled artifacts.
type Keyring struct {
	mu       sync.RWMutex
	path     string
	master   []byte
	cipher   aead
	active   *keyVersion
	versions map[string]*keyVersion
}

// OpenKeyring loads (or creates) a keyring manifest at path, deriving
// every version's key from master. algo selects the cipher of the first
// version, created when no manifest exists yet; Rotate takes its own
// algo for later versions, and blobs produced under an existing version
// are decrypted with the algorithm that version records.
func OpenKeyring(path string, master []byte, algo Algorithm) (*Keyring, error) {
	if len(master) == 0 {
		return nil, fmt.Errorf("cache: keyring requires a non-empty master secret")
	}
	c, err := cipherFor(algo)
	if err != nil {
		return nil, err
	}

	kr := &Keyring{path: path, master: master, cipher: c, versions: make(map[string]*keyVersion)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := kr.rotateLocked(algo); err != nil {
			return nil, err
		}
		return kr, nil
	case err != nil:
		return nil, fmt.Errorf("cache: read keyring manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cache: parse keyring manifest: %w", err)
	}
	for i := range m.Versions {
		v := m.Versions[i]
		vc, err := cipherFor(v.Algo)
		if err != nil {
			return nil, err
		}
		key, err := deriveKey(master, []byte(v.Salt), []byte(v.ID), vc.KeyLen())
		if err != nil {
			return nil, err
		}
		v.key = key
		kr.versions[v.ID] = &v
	}
	active, ok := kr.versions[m.Active]
	if !ok {
		return nil, fmt.Errorf("cache: keyring manifest names unknown active version %q", m.Active)
	}
	kr.active = active
	return kr, nil
}

// deriveKey derives a keyLen-byte key from master via HKDF-SHA256,
// exactly internal/db/encrypt.go's deriveKey.
func deriveKey(master, salt, info []byte, keyLen int) ([]byte, error) {
	r := hkdf.New(sha256.New, master, salt, info)
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cache: derive key: %w", err)
	}
	return key, nil
}

// Rotate generates a new active key version under algo, retaining every
// previously active version so blobs it already encrypted still decrypt
// (the teacher's KeyRotationConfig.RetainOldKeys policy, simplified here
// to "retain all": no version is ever dropped).
func (kr *Keyring) Rotate(algo Algorithm) error {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	return kr.rotateLocked(algo)
}

func (kr *Keyring) rotateLocked(algo Algorithm) error {
	c, err := cipherFor(algo)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	salt := []byte("corelisp-object-cache")
	key, err := deriveKey(kr.master, salt, []byte(id), c.KeyLen())
	if err != nil {
		return err
	}
	v := &keyVersion{ID: id, Algo: algo, Salt: string(salt), CreatedAt: time.Now().Unix(), key: key}
	kr.versions[id] = v
	kr.active = v
	kr.cipher = c
	return kr.persistLocked()
}

func (kr *Keyring) persistLocked() error {
	m := manifest{Active: kr.active.ID}
	for _, v := range kr.versions {
		m.Versions = append(m.Versions, keyVersion{ID: v.ID, Algo: v.Algo, Salt: v.Salt, CreatedAt: v.CreatedAt})
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(kr.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(kr.path, data, 0o600)
}

// Seal encrypts plaintext under the active key version, binding aad
// (the structural hash) so a ciphertext can't be replayed under a
// different hash's filename. The returned bytes are self-describing:
// version id, nonce, then sealed data, so Open never needs a side index
// to know which key encrypted a given blob.
func (kr *Keyring) Seal(aad, plaintext []byte) ([]byte, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	c, err := cipherFor(kr.active.Algo)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, c.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cache: generate nonce: %w", err)
	}
	sealed := c.Seal(kr.active.key, nonce, plaintext, aad)

	id, err := uuid.Parse(kr.active.ID)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 16+len(nonce)+len(sealed))
	out = append(out, id[:]...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Open decrypts data sealed by Seal, binding the same aad.
func (kr *Keyring) Open(aad, data []byte) ([]byte, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	if len(data) < 16 {
		return nil, fmt.Errorf("cache: sealed object too short")
	}
	id := uuid.UUID(data[:16]).String()
	v, ok := kr.versions[id]
	if !ok {
		return nil, fmt.Errorf("cache: sealed object references unknown key version %q", id)
	}
	c, err := cipherFor(v.Algo)
	if err != nil {
		return nil, err
	}
	rest := data[16:]
	if len(rest) < c.NonceSize() {
		return nil, fmt.Errorf("cache: sealed object missing nonce")
	}
	nonce, ciphertext := rest[:c.NonceSize()], rest[c.NonceSize():]
	return c.Open(v.key, nonce, ciphertext, aad)
}
