package engine

import (
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/interfaces"
	"github.com/bkeenke/shm-admin-2/internal/metrics"
	"github.com/bkeenke/shm-admin-2/internal/models"
)

// DefaultNamespace is the storage key the store blob is written under
const DefaultNamespace = "shm-admin:cache"

// Ensure Engine implements interfaces.Cache
var _ interfaces.Cache = (*Engine)(nil)

// Options tune how the engine persists and tells time
type Options struct {
	// Namespace is the storage key of the blob, DefaultNamespace when empty
	Namespace string
	// Deferred marks the store dirty on mutation instead of writing through;
	// Flush writes it.
	Deferred bool
	// Clock defaults to the wall clock
	Clock clock.Clock
	// MemoryOnly starts the engine without storage, as after a storage failure.
	// Nothing is hydrated or written.
	MemoryOnly bool
}

// Engine is the client-resident cache of table query results.
// The store is mirrored to storage after every mutation and hydrated from it once at construction.
type Engine struct {
	mu sync.Mutex

	policy  models.CachePolicy
	entries map[string]*models.CacheEntry
	order   []string // insertion order of keys

	storage    interfaces.Storage
	namespace  string
	deferred   bool
	dirty      bool
	memoryOnly bool

	clock  clock.Clock
	logger *zap.Logger
}

// New creates an engine governed by policy and hydrates it from storage.
// A policy found in storage takes precedence over the given one.
func New(policy models.CachePolicy, storage interfaces.Storage, opts Options, logger *zap.Logger) *Engine {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	e := &Engine{
		policy:     policy.Clamp(),
		entries:    make(map[string]*models.CacheEntry),
		storage:    storage,
		namespace:  opts.Namespace,
		deferred:   opts.Deferred,
		memoryOnly: opts.MemoryOnly,
		clock:      opts.Clock,
		logger:     logger,
	}
	if !e.memoryOnly {
		e.hydrate()
	}

	return e
}

// Get looks up key and classifies the result. An expired entry is evicted.
func (e *Engine) Get(key string) (any, models.CacheState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, state := e.lookupLocked(key)
	metrics.RecordCacheRequest(string(state))
	return value, state
}

func (e *Engine) lookupLocked(key string) (any, models.CacheState) {
	if !e.policy.Enabled {
		return nil, models.CacheStateDisabled
	}

	entry, ok := e.entries[key]
	if !ok {
		return nil, models.CacheStateMiss
	}

	now := e.clock.Now()
	if entry.IsExpired(now) {
		e.removeLocked(key)
		metrics.RecordMutation("evict")
		e.persistLocked()
		return nil, models.CacheStateExpired
	}

	if e.policy.BackgroundRefresh && entry.DueForRefresh(now, e.policy.BackgroundRefreshThreshold) {
		return entry.Value, models.CacheStateHitStaleRefreshable
	}

	return entry.Value, models.CacheStateHit
}

// Set stores value under key with the current policy TTL and reports whether
// it was stored. Overwriting keeps the key's position in the store. No-op
// while the cache is disabled.
func (e *Engine) Set(key string, value any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.policy.Enabled {
		return false
	}

	entry := &models.CacheEntry{
		Key:      key,
		Value:    value,
		StoredAt: e.clock.Now(),
		TTL:      e.policy.TTL,
	}
	if _, exists := e.entries[key]; !exists {
		e.order = append(e.order, key)
	}
	e.entries[key] = entry

	metrics.RecordMutation("set")
	e.persistLocked()
	return true
}

// Invalidate removes key if present
func (e *Engine) Invalidate(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.entries[key]; !ok {
		return
	}

	e.removeLocked(key)
	metrics.RecordMutation("invalidate")
	e.persistLocked()
}

// Clear empties the store and returns how many entries it held
func (e *Engine) Clear() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := len(e.entries)
	e.entries = make(map[string]*models.CacheEntry)
	e.order = nil

	metrics.RecordMutation("clear")
	e.persistLocked()

	e.logger.Info("Cache cleared", zap.Int("removed", removed))
	return removed
}

// Configure merges patch into the policy, clamping every field, and returns
// the effective policy. Existing entries keep their TTL.
func (e *Engine) Configure(patch models.PolicyPatch) models.CachePolicy {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.policy = e.policy.Apply(patch)

	metrics.RecordMutation("configure")
	e.persistLocked()

	e.logger.Info("Cache policy updated",
		zap.Bool("enabled", e.policy.Enabled),
		zap.Int("ttl", e.policy.TTL),
		zap.Bool("background_refresh", e.policy.BackgroundRefresh),
		zap.Float64("background_refresh_threshold", e.policy.BackgroundRefreshThreshold))

	return e.policy
}

// Policy returns the effective policy
func (e *Engine) Policy() models.CachePolicy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy
}

// Sweep evicts every expired entry and returns how many were removed.
// Reads evict lazily; Sweep only bounds memory for keys nobody reads again.
func (e *Engine) Sweep() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	removed := 0
	for _, key := range append([]string(nil), e.order...) {
		if e.entries[key].IsExpired(now) {
			e.removeLocked(key)
			removed++
		}
	}

	if removed > 0 {
		metrics.CacheMutations.WithLabelValues("evict").Add(float64(removed))
		e.persistLocked()
		e.logger.Debug("Swept expired cache entries", zap.Int("removed", removed))
	}
	return removed
}

// removeLocked deletes key from the map and the insertion order
func (e *Engine) removeLocked(key string) {
	delete(e.entries, key)
	for i, k := range e.order {
		if k == key {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}
