package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/metrics"
	"github.com/bkeenke/shm-admin-2/internal/models"
)

const snapshotVersion = 1

var validate = validator.New(validator.WithRequiredStructEnabled())

// snapshot is the blob mirrored to storage. Entries keep insertion order.
type snapshot struct {
	Version int                 `json:"version" validate:"eq=1"`
	Policy  *models.CachePolicy `json:"policy"`
	Entries []models.CacheEntry `json:"entries" validate:"dive"`
}

// hydrate loads the store from storage. Any failure leaves the store empty.
func (e *Engine) hydrate() {
	data, found, err := e.storage.Read(context.Background(), e.namespace)
	if err != nil {
		e.degradeLocked("read", err)
		return
	}
	if !found {
		e.logger.Debug("No persisted cache found", zap.String("namespace", e.namespace))
		return
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		e.logger.Warn("Discarding persisted cache", zap.String("namespace", e.namespace), zap.Error(err))
		metrics.RecordPersistenceError("decode")
		return
	}

	if snap.Policy != nil {
		e.policy = snap.Policy.Clamp()
	}
	for i := range snap.Entries {
		entry := snap.Entries[i]
		if _, exists := e.entries[entry.Key]; !exists {
			e.order = append(e.order, entry.Key)
		}
		e.entries[entry.Key] = &entry
	}

	e.logger.Info("Hydrated cache from storage",
		zap.String("namespace", e.namespace),
		zap.Int("entries", len(e.entries)))
}

func decodeSnapshot(data []byte) (*snapshot, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cache snapshot: %w", err)
	}
	if err := validate.Struct(snap); err != nil {
		return nil, fmt.Errorf("invalid cache snapshot: %w", err)
	}
	return &snap, nil
}

func (e *Engine) encodeLocked() ([]byte, error) {
	policy := e.policy
	snap := snapshot{
		Version: snapshotVersion,
		Policy:  &policy,
		Entries: make([]models.CacheEntry, 0, len(e.order)),
	}
	for _, key := range e.order {
		entry := *e.entries[key]
		raw, err := json.Marshal(entry.Value)
		if err != nil {
			// Only this entry is left out; it stays usable in memory.
			e.logger.Warn("Failed to encode cache value, not persisting entry", zap.String("key", key), zap.Error(err))
			metrics.RecordPersistenceError("encode")
			continue
		}
		entry.Value = json.RawMessage(raw)
		snap.Entries = append(snap.Entries, entry)
	}
	return json.Marshal(snap)
}

// persistLocked is the write-through step run at the end of every mutation
func (e *Engine) persistLocked() {
	if e.memoryOnly {
		return
	}
	if e.deferred {
		e.dirty = true
		return
	}
	e.writeLocked()
}

func (e *Engine) writeLocked() {
	data, err := e.encodeLocked()
	if err != nil {
		// The next mutation retries with a fresh snapshot.
		e.logger.Warn("Failed to encode cache snapshot, skipping persistence", zap.Error(err))
		metrics.RecordPersistenceError("encode")
		return
	}

	if err := e.storage.Write(context.Background(), e.namespace, data); err != nil {
		e.degradeLocked("write", err)
		return
	}

	e.dirty = false
	metrics.RecordPersistenceWrite()
}

// degradeLocked switches the engine to memory-only operation for the rest of the process
func (e *Engine) degradeLocked(kind string, err error) {
	e.memoryOnly = true
	metrics.RecordPersistenceError(kind)
	e.logger.Warn("Cache storage unavailable, continuing in memory-only mode",
		zap.String("namespace", e.namespace),
		zap.String("operation", kind),
		zap.Error(err))
}

// Flush writes the store if a deferred mutation left it dirty
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.dirty || e.memoryOnly {
		return
	}
	e.writeLocked()
}

// MemoryOnly reports whether persistence was abandoned after a storage failure
func (e *Engine) MemoryOnly() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.memoryOnly
}

// Close flushes pending state and closes the storage
func (e *Engine) Close() error {
	e.Flush()
	return e.storage.Close()
}
