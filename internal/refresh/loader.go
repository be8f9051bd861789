package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bkeenke/shm-admin-2/internal/interfaces"
	"github.com/bkeenke/shm-admin-2/internal/metrics"
	"github.com/bkeenke/shm-admin-2/internal/models"
)

// FetchFunc loads a fresh value for one cache key from the data source
type FetchFunc func(ctx context.Context) (any, error)

// Loader is the read path of a table screen: it serves cached values, blocks on
// misses, and refreshes stale values in the background.
type Loader struct {
	cache          interfaces.Cache
	refreshTimeout time.Duration
	logger         *zap.Logger

	// misses collapses concurrent blocking fetches of one key
	misses singleflight.Group

	mu         sync.Mutex
	refreshing map[string]struct{}

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewLoader creates a loader over cache. Background refreshes and shared miss
// fetches are bounded by refreshTimeout.
func NewLoader(cache interfaces.Cache, refreshTimeout time.Duration, logger *zap.Logger) *Loader {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Loader{
		cache:          cache,
		refreshTimeout: refreshTimeout,
		logger:         logger,
		refreshing:     make(map[string]struct{}),
		baseCtx:        baseCtx,
		cancel:         cancel,
	}
}

// Load returns the value for key and the state the cache reported for it.
//
//   - Hit: the cached value.
//   - HitStaleRefreshable: the cached value; a detached fetch replaces it later.
//   - Miss, Expired: blocks on fetch and stores the result.
//   - Disabled: blocks on fetch; nothing is stored.
func (l *Loader) Load(ctx context.Context, key string, fetch FetchFunc) (any, models.CacheState, error) {
	value, state := l.cache.Get(key)

	switch state {
	case models.CacheStateHit:
		return value, state, nil
	case models.CacheStateHitStaleRefreshable:
		l.refreshInBackground(key, fetch)
		return value, state, nil
	case models.CacheStateDisabled:
		value, err := fetch(ctx)
		return value, state, err
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own context ends.
	results := l.misses.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.refreshTimeout)
		defer cancel()

		fresh, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, fresh)
		return fresh, nil
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, state, fmt.Errorf("failed to load %s: %w", key, res.Err)
		}
		if res.Shared {
			l.logger.Debug("Shared in-flight fetch", zap.String("key", key))
		}
		return res.Val, state, nil
	case <-ctx.Done():
		return nil, state, fmt.Errorf("failed to load %s: %w", key, ctx.Err())
	}
}

// Reload fetches key unconditionally and stores the result
func (l *Loader) Reload(ctx context.Context, key string, fetch FetchFunc) (any, error) {
	value, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload %s: %w", key, err)
	}
	l.cache.Set(key, value)
	return value, nil
}

// refreshInBackground starts at most one detached refresh per key.
// Failures are logged and the stale value stays in place.
func (l *Loader) refreshInBackground(key string, fetch FetchFunc) {
	l.mu.Lock()
	if l.baseCtx.Err() != nil {
		l.mu.Unlock()
		return
	}
	if _, running := l.refreshing[key]; running {
		l.mu.Unlock()
		return
	}
	l.refreshing[key] = struct{}{}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			delete(l.refreshing, key)
			l.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(l.baseCtx, l.refreshTimeout)
		defer cancel()

		value, err := fetch(ctx)
		if err != nil {
			metrics.RecordBackgroundRefresh(false)
			l.logger.Warn("Background refresh failed, keeping stale value", zap.String("key", key), zap.Error(err))
			return
		}

		l.cache.Set(key, value)
		metrics.RecordBackgroundRefresh(true)
		l.logger.Debug("Background refresh completed", zap.String("key", key))
	}()
}

// Wait blocks until every background refresh has finished
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close cancels in-flight background refreshes and waits for them to return
func (l *Loader) Close() {
	l.mu.Lock()
	l.cancel()
	l.mu.Unlock()
	l.wg.Wait()
}
