package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/interfaces"
)

// Blobs are never evicted by age; the engine owns expiry.
const lifeWindow = 100 * 365 * 24 * time.Hour

// Ensure BigCacheStore implements interfaces.Storage
var _ interfaces.Storage = (*BigCacheStore)(nil)

// BigCacheStore keeps blobs in process memory using BigCache.
// Contents outlive an engine instance but not the process.
type BigCacheStore struct {
	cache  *bigcache.BigCache
	logger *zap.Logger
}

// NewBigCacheStore creates a store bounded to sizeMB megabytes (0 means unbounded)
func NewBigCacheStore(sizeMB int, logger *zap.Logger) (*BigCacheStore, error) {
	config := bigcache.DefaultConfig(lifeWindow)
	config.Shards = 1 // one blob per namespace, so a single shard holds the whole budget
	config.CleanWindow = 0
	config.MaxEntriesInWindow = 16
	config.HardMaxCacheSize = sizeMB
	config.MaxEntrySize = 1024 * 1024
	config.Verbose = false

	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigcache: %w", err)
	}

	logger.Info("BigCache storage initialized", zap.Int("size_mb", sizeMB))
	return &BigCacheStore{
		cache:  cache,
		logger: logger,
	}, nil
}

// Read returns the blob stored under key
func (s *BigCacheStore) Read(_ context.Context, key string) ([]byte, bool, error) {
	data, err := s.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read from bigcache: %w", err)
	}
	return data, true, nil
}

// Write stores the blob under key, replacing any previous one
func (s *BigCacheStore) Write(_ context.Context, key string, data []byte) error {
	if err := s.cache.Set(key, data); err != nil {
		return fmt.Errorf("failed to write to bigcache: %w", err)
	}
	return nil
}

// Close releases the cache
func (s *BigCacheStore) Close() error {
	return s.cache.Close()
}
