package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/interfaces"
)

const fileExtension = ".json"

// Ensure Store implements interfaces.Storage
var _ interfaces.Storage = (*Store)(nil)

// Store keeps each key in its own file under a directory.
// Writes go to a temporary file first and are renamed into place.
type Store struct {
	dir    string
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewStore creates the directory if needed and returns a file-backed store
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	logger.Info("File storage initialized", zap.String("dir", dir))
	return &Store{dir: dir, logger: logger}, nil
}

// Read returns the file content for key; a missing file is reported as not found
func (s *Store) Read(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read storage file: %w", err)
	}
	return data, true, nil
}

// Write replaces the file for key atomically
func (s *Store) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename storage file: %w", err)
	}
	return nil
}

// Close is a no-op; files are not held open
func (s *Store) Close() error {
	return nil
}

// path maps a storage key to a filesystem-safe file name
func (s *Store) path(key string) string {
	safeKey := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(s.dir, safeKey+fileExtension)
}
