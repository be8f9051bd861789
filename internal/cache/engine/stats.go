package engine

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/interfaces"
	"github.com/bkeenke/shm-admin-2/internal/metrics"
	"github.com/bkeenke/shm-admin-2/internal/models"
	"github.com/bkeenke/shm-admin-2/internal/utils"
)

// Stats scans the store without evicting. Expired entries are left out entirely.
// A value that fails to serialize still counts as a key but adds no bytes and
// gets no entry line.
func (e *Engine) Stats() models.CacheStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	stats := models.CacheStats{Entries: make([]models.EntryStat, 0, len(e.order))}

	for _, key := range e.order {
		entry := e.entries[key]
		if entry.IsExpired(now) {
			continue
		}
		stats.TotalKeys++

		data, err := json.Marshal(entry.Value)
		if err != nil {
			e.logger.Warn("Failed to serialize cache value for stats", zap.String("key", key), zap.Error(err))
			continue
		}

		size := int64(len(data))
		age := entry.Age(now)
		expiresIn := entry.ExpiresIn(now)
		stats.TotalBytes += size
		stats.Entries = append(stats.Entries, models.EntryStat{
			Key:              key,
			Size:             utils.FormatBytes(size),
			Age:              utils.FormatDuration(age),
			ExpiresIn:        utils.FormatDuration(expiresIn),
			SizeBytes:        size,
			AgeSeconds:       int64(age.Seconds()),
			ExpiresInSeconds: int64(expiresIn.Seconds()),
		})
	}
	stats.TotalSize = utils.FormatBytes(stats.TotalBytes)

	return stats
}

// CollectMetrics publishes the live key count and size gauges
func (e *Engine) CollectMetrics() {
	stats := e.Stats()
	metrics.UpdateCacheSize(stats.TotalKeys, stats.TotalBytes)
}

// GetAs looks up key and converts the cached value to T. Values hydrated from
// storage come back as generic JSON, so they are re-decoded into T.
func GetAs[T any](c interfaces.Cache, key string) (T, models.CacheState, error) {
	var out T

	value, state := c.Get(key)
	if !state.Found() {
		return out, state, nil
	}
	if typed, ok := value.(T); ok {
		return typed, state, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return out, state, fmt.Errorf("failed to encode cached value: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, state, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return out, state, nil
}
