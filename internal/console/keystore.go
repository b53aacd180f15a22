// Package console is the client side of the admin verification surface:
// it keeps the shared admin key on disk and wraps the key-gated endpoints
// for listing, approving and rejecting purchase requests.
package console

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyStore persists the shared admin key between sessions.
type KeyStore interface {
	// Load returns the stored key, empty when none is stored.
	Load() (string, error)
	Save(key string) error
	Clear() error
}

type fileKeyStore struct {
	path string
}

// NewFileKeyStore stores the key in a single file, created with 0600.
func NewFileKeyStore(path string) KeyStore {
	return &fileKeyStore{path: path}
}

func (s *fileKeyStore) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read admin key: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *fileKeyStore) Save(key string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("save admin key: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(key+"\n"), 0o600); err != nil {
		return fmt.Errorf("save admin key: %w", err)
	}
	return nil
}

func (s *fileKeyStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear admin key: %w", err)
	}
	return nil
}
