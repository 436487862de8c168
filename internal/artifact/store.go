// Package artifact persists raw and processed indicator datasets under
// deterministic keys. The store is the only reuse mechanism across
// invocations: an existing key short-circuits recomputation, and distinct
// analyses never share a key, so concurrent invocations need no coordination
// beyond idempotent writes.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is a key-addressed artifact store.
type Store interface {
	Exists(key string) bool
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
}

// FSStore keeps artifacts as files under a root directory. Writes go through
// a temp file and rename so a crashed run never leaves a partial artifact
// behind a valid key.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.root, filepath.Base(strings.TrimSpace(key)))
}

func (s *FSStore) Exists(key string) bool {
	info, err := os.Stat(s.path(key))
	return err == nil && !info.IsDir()
}

func (s *FSStore) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, nil
}

func (s *FSStore) Write(key string, data []byte) error {
	dst := s.path(key)
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	return nil
}
