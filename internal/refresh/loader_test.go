package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/bkeenke/shm-admin-2/internal/cache/engine"
	"github.com/bkeenke/shm-admin-2/internal/interfaces/mock"
	"github.com/bkeenke/shm-admin-2/internal/models"
	"github.com/bkeenke/shm-admin-2/internal/storage/noop"
)

func newTestLoader(t *testing.T) (*Loader, *engine.Engine, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	policy := models.CachePolicy{
		Enabled:                    true,
		TTL:                        300,
		BackgroundRefresh:          true,
		BackgroundRefreshThreshold: 0.8,
	}
	e := engine.New(policy, noop.NewNoOpStore(), engine.Options{Clock: clk}, zap.NewNop())
	loader := NewLoader(e, time.Minute, zaptest.NewLogger(t))
	t.Cleanup(loader.Close)
	return loader, e, clk
}

// counter returns a fetch func yielding value and counting its calls
func counter(value any, calls *atomic.Int32) FetchFunc {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestLoader_MissThenHit(t *testing.T) {
	loader, _, _ := newTestLoader(t)
	ctx := context.Background()
	var calls atomic.Int32

	value, state, err := loader.Load(ctx, "services:p0", counter("page", &calls))
	require.NoError(t, err)
	assert.Equal(t, models.CacheStateMiss, state)
	assert.Equal(t, "page", value)

	value, state, err = loader.Load(ctx, "services:p0", counter("other", &calls))
	require.NoError(t, err)
	assert.Equal(t, models.CacheStateHit, state)
	assert.Equal(t, "page", value)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_ExpiredBlocksOnFetch(t *testing.T) {
	loader, e, clk := newTestLoader(t)
	ctx := context.Background()
	var calls atomic.Int32

	e.Set("services:p0", "old")
	clk.Add(301 * time.Second)

	value, state, err := loader.Load(ctx, "services:p0", counter("new", &calls))
	require.NoError(t, err)
	assert.Equal(t, models.CacheStateExpired, state)
	assert.Equal(t, "new", value)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_StaleServesAndRefreshes(t *testing.T) {
	loader, e, clk := newTestLoader(t)
	ctx := context.Background()
	var calls atomic.Int32

	e.Set("services:p0", "stale")
	clk.Add(250 * time.Second)

	value, state, err := loader.Load(ctx, "services:p0", counter("fresh", &calls))
	require.NoError(t, err)
	assert.Equal(t, models.CacheStateHitStaleRefreshable, state)
	assert.Equal(t, "stale", value, "stale value is served immediately")

	loader.Wait()
	assert.Equal(t, int32(1), calls.Load())

	value, state = e.Get("services:p0")
	assert.Equal(t, models.CacheStateHit, state)
	assert.Equal(t, "fresh", value)
}

func TestLoader_StaleRefreshFailureKeepsValue(t *testing.T) {
	loader, e, clk := newTestLoader(t)

	e.Set("services:p0", "stale")
	clk.Add(250 * time.Second)

	failing := func(context.Context) (any, error) { return nil, errors.New("upstream 502") }

	value, state, err := loader.Load(context.Background(), "services:p0", failing)
	require.NoError(t, err, "background failures never reach the caller")
	assert.Equal(t, "stale", value)
	assert.Equal(t, models.CacheStateHitStaleRefreshable, state)

	loader.Wait()

	value, state = e.Get("services:p0")
	assert.Equal(t, models.CacheStateHitStaleRefreshable, state)
	assert.Equal(t, "stale", value)
}

func TestLoader_OneBackgroundRefreshPerKey(t *testing.T) {
	loader, e, clk := newTestLoader(t)

	e.Set("services:p0", "stale")
	clk.Add(250 * time.Second)

	release := make(chan struct{})
	var calls atomic.Int32
	blocking := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "fresh", nil
	}

	for i := 0; i < 5; i++ {
		_, state, err := loader.Load(context.Background(), "services:p0", blocking)
		require.NoError(t, err)
		assert.Equal(t, models.CacheStateHitStaleRefreshable, state)
	}

	close(release)
	loader.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_ConcurrentMissesShareFetch(t *testing.T) {
	loader, _, _ := newTestLoader(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "page", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, _, err := loader.Load(context.Background(), "services:p0", fetch)
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, value := range results {
		assert.Equal(t, "page", value)
	}
}

func TestLoader_SharedFetchSurvivesFirstCallerCancel(t *testing.T) {
	loader, e, _ := newTestLoader(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fetch := func(ctx context.Context) (any, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return "page", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := loader.Load(firstCtx, "services:p0", fetch)
		firstErr <- err
	}()
	<-started

	second := make(chan any, 1)
	go func() {
		value, _, err := loader.Load(context.Background(), "services:p0", fetch)
		assert.NoError(t, err)
		second <- value
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, "page", <-second)

	value, state := e.Get("services:p0")
	assert.Equal(t, models.CacheStateHit, state)
	assert.Equal(t, "page", value)
}

func TestLoader_MissFetchError(t *testing.T) {
	loader, e, _ := newTestLoader(t)
	fetchErr := errors.New("connection reset")

	_, state, err := loader.Load(context.Background(), "services:p0", func(context.Context) (any, error) {
		return nil, fetchErr
	})

	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, models.CacheStateMiss, state)

	_, state = e.Get("services:p0")
	assert.Equal(t, models.CacheStateMiss, state, "failed fetches are not cached")
}

func TestLoader_DisabledPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache := mock.NewMockCache(ctrl)
	cache.EXPECT().Get("services:p0").Return(nil, models.CacheStateDisabled).Times(2)
	cache.EXPECT().Set(gomock.Any(), gomock.Any()).Times(0)

	loader := NewLoader(cache, time.Second, zap.NewNop())
	defer loader.Close()
	var calls atomic.Int32

	for i := 0; i < 2; i++ {
		value, state, err := loader.Load(context.Background(), "services:p0", counter("live", &calls))
		require.NoError(t, err)
		assert.Equal(t, models.CacheStateDisabled, state)
		assert.Equal(t, "live", value)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoader_Reload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache := mock.NewMockCache(ctrl)
	cache.EXPECT().Set("services:p0", "forced")

	loader := NewLoader(cache, time.Second, zap.NewNop())
	defer loader.Close()
	var calls atomic.Int32

	value, err := loader.Reload(context.Background(), "services:p0", counter("forced", &calls))
	require.NoError(t, err)
	assert.Equal(t, "forced", value)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_Reload_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache := mock.NewMockCache(ctrl)
	loader := NewLoader(cache, time.Second, zap.NewNop())
	defer loader.Close()

	_, err := loader.Reload(context.Background(), "services:p0", func(context.Context) (any, error) {
		return nil, errors.New("timeout")
	})
	assert.Error(t, err)
}

func TestLoader_CloseCancelsRefreshes(t *testing.T) {
	loader, e, clk := newTestLoader(t)

	e.Set("services:p0", "stale")
	clk.Add(250 * time.Second)

	waiting := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, _, err := loader.Load(context.Background(), "services:p0", waiting)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		loader.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the background refresh")
	}

	var calls atomic.Int32
	_, _, err = loader.Load(context.Background(), "services:p0", counter("late", &calls))
	require.NoError(t, err)
	loader.Wait()
	assert.Equal(t, int32(0), calls.Load(), "no refresh starts after Close")
}
