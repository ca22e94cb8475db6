// Package vault encrypts the stored portal credential at rest.
package vault

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
)

const keySize = 32

// Vault encodes and decodes credentials with a secretbox key kept in
// a local key file.
type Vault struct {
	key [keySize]byte
}

// Open loads the key file, creating a fresh random key on first use.
func Open(keyPath string) (*Vault, error) {
	data, err := os.ReadFile(keyPath) // nolint
	if errors.Is(err, os.ErrNotExist) {
		return create(keyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	raw, err := hex.DecodeString(string(data))
	if err != nil || len(raw) != keySize {
		return nil, fmt.Errorf("key file %s is corrupt", keyPath)
	}

	v := &Vault{}
	copy(v.key[:], raw)
	return v, nil
}

func create(keyPath string) (*Vault, error) {
	v := &Vault{}
	if _, err := io.ReadFull(rand.Reader, v.key[:]); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0o755); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(v.key[:])), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return v, nil
}

// Encode seals a plain credential into an opaque blob, nonce first.
func (v *Vault) Encode(plain string) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plain), &nonce, &v.key), nil
}

// Decode opens a blob produced by Encode.
func (v *Vault) Decode(opaque []byte) (string, error) {
	if len(opaque) < 24 {
		return "", errors.New("stored credential is corrupt")
	}
	var nonce [24]byte
	copy(nonce[:], opaque[:24])
	plain, ok := secretbox.Open(nil, opaque[24:], &nonce, &v.key)
	if !ok {
		return "", errors.New("stored credential does not match the key file")
	}
	return string(plain), nil
}
