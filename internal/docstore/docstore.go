// Package docstore stores uploaded documents (résumés) on the local
// filesystem, keyed by opaque relative paths.
package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store saves and retrieves uploaded documents under a base directory.
type Store struct {
	baseDir string
}

// New creates a Store rooted at baseDir, creating the directory if needed.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("document store directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document store directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save writes data under a fresh opaque path and returns that path. The
// original filename only contributes its extension.
func (s *Store) Save(originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	path := uuid.NewString() + ext

	if err := os.WriteFile(filepath.Join(s.baseDir, path), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}
	return path, nil
}

// ReadBytes reads a stored document
func (s *Store) ReadBytes(path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	return data, nil
}

// AbsolutePath returns the on-disk location of a stored document, for
// callers that hand the file to something else (mail attachments).
func (s *Store) AbsolutePath(path string) (string, error) {
	return s.resolve(path)
}

// Delete removes a stored document. Deleting a missing document is not an
// error; campaign deletion must be idempotent.
func (s *Store) Delete(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}
	return nil
}

// resolve rejects paths escaping the base directory
func (s *Store) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("document path is empty")
	}
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid document path: %s", path)
	}
	return filepath.Join(s.baseDir, clean), nil
}
