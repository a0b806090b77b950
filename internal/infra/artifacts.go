package infra

// artifacts.go — filesystem-backed artifact store for rendered closure
// documents. Location refs are opaque relative paths so the store can be
// swapped for a bucket-backed implementation without touching callers.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileArtifactStore saves and reads artifact bytes under a root directory.
// Satisfies service.ArtifactStore.
type FileArtifactStore struct {
	root string
}

func NewFileArtifactStore(root string) *FileArtifactStore {
	return &FileArtifactStore{root: root}
}

// Save writes the artifact bytes under the given name and returns the
// opaque location ref.
func (s *FileArtifactStore) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("artifacts: create storage dir: %w", err)
	}
	// Location refs never escape the root
	clean := filepath.Base(name)
	if err := os.WriteFile(filepath.Join(s.root, clean), data, 0o644); err != nil {
		return "", fmt.Errorf("artifacts: write %s: %w", clean, err)
	}
	return clean, nil
}

// Read returns the artifact bytes for a location ref produced by Save.
func (s *FileArtifactStore) Read(location string) ([]byte, error) {
	if strings.Contains(location, "..") {
		return nil, fmt.Errorf("artifacts: invalid location ref %q", location)
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.Base(location)))
	if err != nil {
		return nil, fmt.Errorf("artifacts: read %s: %w", location, err)
	}
	return data, nil
}

// DigestHex returns the SHA-256 hex digest of the artifact bytes — the
// tamper-evidence value stored on the closure document.
func DigestHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
