package multi

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/interfaces"
)

// Ensure MultiStore implements interfaces.Storage
var _ interfaces.Storage = (*MultiStore)(nil)

// MultiStore mirrors the blob across several stores.
// Reads return the first store that has the key; writes go to every store.
type MultiStore struct {
	stores []interfaces.Storage
	logger *zap.Logger
}

// NewMultiStore creates a new MultiStore over stores, in read priority order
func NewMultiStore(stores []interfaces.Storage, logger *zap.Logger) *MultiStore {
	return &MultiStore{
		stores: stores,
		logger: logger,
	}
}

// Read tries each store in order. A failing store is skipped as long as a later
// one answers; the error is returned only when no store could be read.
func (ms *MultiStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if len(ms.stores) == 0 {
		ms.logger.Warn("No stores available for read operation", zap.String("key", key))
		return nil, false, nil
	}

	var errs []error
	for i, store := range ms.stores {
		data, found, err := store.Read(ctx, key)
		if err != nil {
			ms.logger.Warn("Store read failed", zap.Int("tier", i), zap.String("key", key), zap.Error(err))
			errs = append(errs, fmt.Errorf("tier %d: %w", i, err))
			continue
		}
		if found {
			return data, true, nil
		}
	}

	if len(errs) == len(ms.stores) {
		return nil, false, errors.Join(errs...)
	}
	return nil, false, nil
}

// Write stores data in every store and joins their errors
func (ms *MultiStore) Write(ctx context.Context, key string, data []byte) error {
	if len(ms.stores) == 0 {
		ms.logger.Warn("No stores available for write operation", zap.String("key", key))
		return nil
	}

	var errs []error
	for i, store := range ms.stores {
		if err := store.Write(ctx, key, data); err != nil {
			errs = append(errs, fmt.Errorf("tier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every store and joins their errors
func (ms *MultiStore) Close() error {
	var errs []error
	for _, store := range ms.stores {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
