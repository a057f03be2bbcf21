// Package local stores record fallbacks and artifact mirrors on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesBase reports a key that resolves outside the base directory.
var ErrEscapesBase = errors.New("key escapes base directory")

// Config holds the store's root.
type Config struct {
	// BaseDir holds every object; it is created when missing.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes each key to a file under BaseDir.
type BlobStore struct {
	baseDir string
}

// New opens dir as a store after checking it can be written.
func New(cfg Config) (*BlobStore, error) {
	dir := strings.TrimSpace(cfg.BaseDir)
	if dir == "" {
		return nil, fmt.Errorf("local store: base directory is required")
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("local store %s: %w", dir, err)
	}
	check, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("local store %s is not writable: %w", dir, err)
	}
	_ = check.Close()
	if err := os.Remove(check.Name()); err != nil {
		return nil, fmt.Errorf("local store %s: remove write check: %w", dir, err)
	}
	return &BlobStore{baseDir: dir}, nil
}

// BaseDir returns the root directory.
func (s *BlobStore) BaseDir() string {
	return s.baseDir
}

// resolve maps key to a file path, refusing anything outside the base.
func (s *BlobStore) resolve(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("local store: key is required")
	}
	full := filepath.Join(s.baseDir, key)
	rel, err := filepath.Rel(s.baseDir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrEscapesBase, key)
	}
	return full, nil
}

// PutObject writes data under key and returns a file:// URI. The file is
// replaced atomically, so a record saved again for a later attempt never
// leaves a half-written file behind.
func (s *BlobStore) PutObject(_ context.Context, key string, _ string, data io.Reader) (string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+".*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return "file://" + full, nil
}
