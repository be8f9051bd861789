package keydb

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/config"
	"github.com/bkeenke/shm-admin-2/internal/interfaces"
)

// Ensure KeyDBStore implements interfaces.Storage
var _ interfaces.Storage = (*KeyDBStore)(nil)

// KeyDBStore keeps blobs in KeyDB/Redis. Keys never expire; the engine owns expiry.
type KeyDBStore struct {
	client interfaces.KeyDbClient
	config *config.KeyDBConfig
	logger *zap.Logger
}

// NewKeyDBStore creates a new KeyDBStore instance with provided client
func NewKeyDBStore(cfg *config.KeyDBConfig, client interfaces.KeyDbClient, logger *zap.Logger) *KeyDBStore {
	return &KeyDBStore{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// Read fetches the blob under key; a missing key is not an error
func (ks *KeyDBStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, ks.config.Connection.ReadTimeout)
	defer cancel()

	data, err := ks.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("keydb get %s: %w", key, err)
	}
	return data, true, nil
}

// Write stores the blob under key without expiration
func (ks *KeyDBStore) Write(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, ks.config.Connection.SendTimeout)
	defer cancel()

	if err := ks.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("keydb set %s: %w", key, err)
	}
	return nil
}

// Close closes the KeyDB connection
func (ks *KeyDBStore) Close() error {
	return ks.client.Close()
}
