package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/bkeenke/shm-admin-2/internal/interfaces/mock"
	"github.com/bkeenke/shm-admin-2/internal/models"
)

func TestEngine_PersistenceRoundTrip(t *testing.T) {
	clk := clock.NewMock()
	storage := newMemStorage()
	logger := zaptest.NewLogger(t)

	value := map[string]any{
		"items": []any{
			map[string]any{"service_id": float64(1), "name": "vpn"},
			map[string]any{"service_id": float64(2), "name": "hosting"},
		},
		"total": float64(2),
	}

	first := New(scenarioPolicy(), storage, Options{Clock: clk}, logger)
	first.Set("services:limit=25&offset=0", value)
	first.Set("users:limit=25&offset=0", []any{"alice"})

	clk.Add(100 * time.Second)

	second := New(models.DefaultPolicy(), storage, Options{Clock: clk}, logger)

	got, state := second.Get("services:limit=25&offset=0")
	assert.Equal(t, models.CacheStateHit, state)
	assert.Equal(t, value, got)

	stats := second.Stats()
	require.Len(t, stats.Entries, 2)
	assert.Equal(t, "services:limit=25&offset=0", stats.Entries[0].Key, "insertion order survives hydration")
	assert.Equal(t, int64(100), stats.Entries[0].AgeSeconds)
}

func TestEngine_Hydrate_RestoresPersistedPolicy(t *testing.T) {
	clk := clock.NewMock()
	storage := newMemStorage()

	first := New(scenarioPolicy(), storage, Options{Clock: clk}, zap.NewNop())
	ttl := 900
	off := false
	first.Configure(models.PolicyPatch{TTL: &ttl, BackgroundRefresh: &off})

	second := New(models.DefaultPolicy(), storage, Options{Clock: clk}, zap.NewNop())
	policy := second.Policy()
	assert.Equal(t, 900, policy.TTL)
	assert.False(t, policy.BackgroundRefresh)
}

func TestEngine_Hydrate_InvalidBlobStartsEmpty(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", `{{{`},
		{"wrong shape", `["a", "b"]`},
		{"unknown version", `{"version": 7, "entries": []}`},
		{"entry without timestamp", `{"version": 1, "entries": [{"key": "k", "value": 1, "ttl": 300}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newMemStorage()
			storage.data[DefaultNamespace] = []byte(tt.blob)

			e := New(scenarioPolicy(), storage, Options{Clock: clock.NewMock()}, zap.NewNop())

			assert.Equal(t, 0, e.Stats().TotalKeys)
			assert.Equal(t, scenarioPolicy(), e.Policy())
			assert.False(t, e.MemoryOnly())

			e.Set("k", "v")
			assert.Equal(t, 1, storage.writeCount(), "a bad blob does not disable persistence")
		})
	}
}

func TestEngine_Hydrate_ClampsPersistedPolicy(t *testing.T) {
	storage := newMemStorage()
	storage.data["custom"] = []byte(`{"version":1,"policy":{"enabled":true,"ttl":5,"background_refresh":true,"background_refresh_threshold":3},"entries":[]}`)

	e := New(scenarioPolicy(), storage, Options{Namespace: "custom", Clock: clock.NewMock()}, zap.NewNop())

	assert.Equal(t, models.MinTTLSeconds, e.Policy().TTL)
	assert.Equal(t, models.MaxRefreshThreshold, e.Policy().BackgroundRefreshThreshold)
}

func TestEngine_SnapshotShape(t *testing.T) {
	clk := clock.NewMock()
	storage := newMemStorage()
	e := New(scenarioPolicy(), storage, Options{Clock: clk}, zap.NewNop())

	e.Set("b", 2)
	e.Set("a", 1)

	var snap snapshot
	require.NoError(t, json.Unmarshal(storage.data[DefaultNamespace], &snap))
	assert.Equal(t, 1, snap.Version)
	require.NotNil(t, snap.Policy)
	assert.Equal(t, 300, snap.Policy.TTL)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "b", snap.Entries[0].Key)
	assert.Equal(t, "a", snap.Entries[1].Key)
	assert.Equal(t, 300, snap.Entries[1].TTL)
}

func TestEngine_WritesAfterEveryMutation(t *testing.T) {
	e, clk, storage := newTestEngine(t, scenarioPolicy())

	e.Set("a", 1)
	assert.Equal(t, 1, storage.writeCount())

	e.Invalidate("a")
	assert.Equal(t, 2, storage.writeCount())

	ttl := 120
	e.Configure(models.PolicyPatch{TTL: &ttl})
	assert.Equal(t, 3, storage.writeCount())

	e.Set("b", 1)
	clk.Add(200 * time.Second)
	_, state := e.Get("b")
	assert.Equal(t, models.CacheStateExpired, state)
	assert.Equal(t, 5, storage.writeCount(), "lazy eviction is a mutation too")

	e.Clear()
	assert.Equal(t, 6, storage.writeCount())

	_, _ = e.Get("missing")
	_ = e.Stats()
	assert.Equal(t, 6, storage.writeCount(), "reads that change nothing never persist")
}

func TestEngine_StorageReadFailure_MemoryOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage := mock.NewMockStorage(ctrl)
	storage.EXPECT().Read(gomock.Any(), DefaultNamespace).Return(nil, false, errors.New("quota exceeded"))
	// No Write expectation: a memory-only engine never touches storage again.

	e := New(scenarioPolicy(), storage, Options{Clock: clock.NewMock()}, zap.NewNop())
	assert.True(t, e.MemoryOnly())

	e.Set("k", "v")
	value, state := e.Get("k")
	assert.Equal(t, models.CacheStateHit, state)
	assert.Equal(t, "v", value)
}

func TestEngine_StorageWriteFailure_DegradesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage := mock.NewMockStorage(ctrl)
	storage.EXPECT().Read(gomock.Any(), DefaultNamespace).Return(nil, false, nil)
	storage.EXPECT().Write(gomock.Any(), DefaultNamespace, gomock.Any()).Return(errors.New("quota exceeded")).Times(1)

	e := New(scenarioPolicy(), storage, Options{Clock: clock.NewMock()}, zap.NewNop())
	assert.False(t, e.MemoryOnly())

	e.Set("a", 1)
	assert.True(t, e.MemoryOnly())

	e.Set("b", 2)
	e.Invalidate("a")
	e.Clear()

	_, state := e.Get("b")
	assert.Equal(t, models.CacheStateMiss, state)
}

func TestEngine_UnserializableValue_PersistsOtherEntries(t *testing.T) {
	clk := clock.NewMock()
	storage := newMemStorage()
	e := New(scenarioPolicy(), storage, Options{Clock: clk}, zap.NewNop())

	e.Set("bad", make(chan int))
	e.Set("services:p0", []any{"a", "b"})
	assert.False(t, e.MemoryOnly(), "an unserializable value does not disable persistence")
	assert.Equal(t, 2, storage.writeCount())

	_, state := e.Get("bad")
	assert.Equal(t, models.CacheStateHit, state, "the value stays usable in memory")

	reloaded := New(scenarioPolicy(), storage, Options{Clock: clk}, zap.NewNop())

	value, state := reloaded.Get("services:p0")
	assert.Equal(t, models.CacheStateHit, state)
	assert.Equal(t, []any{"a", "b"}, value)

	_, state = reloaded.Get("bad")
	assert.Equal(t, models.CacheStateMiss, state)
}

func TestEngine_DeferredPersistence(t *testing.T) {
	clk := clock.NewMock()
	storage := newMemStorage()
	e := New(scenarioPolicy(), storage, Options{Deferred: true, Clock: clk}, zap.NewNop())

	e.Set("a", 1)
	e.Set("b", 2)
	e.Invalidate("a")
	assert.Equal(t, 0, storage.writeCount())

	e.Flush()
	assert.Equal(t, 1, storage.writeCount())

	e.Flush()
	assert.Equal(t, 1, storage.writeCount(), "clean store is not rewritten")

	e.Set("c", 3)
	require.NoError(t, e.Close())
	assert.Equal(t, 2, storage.writeCount(), "close flushes pending mutations")

	reloaded := New(scenarioPolicy(), storage, Options{Clock: clk}, zap.NewNop())
	assert.Equal(t, 2, reloaded.Stats().TotalKeys)
}

func TestEngine_StartsMemoryOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage := mock.NewMockStorage(ctrl)
	storage.EXPECT().Read(gomock.Any(), gomock.Any()).Times(0)
	storage.EXPECT().Write(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	storage.EXPECT().Close().Return(nil)

	e := New(scenarioPolicy(), storage, Options{Clock: clock.NewMock(), MemoryOnly: true}, zap.NewNop())
	assert.True(t, e.MemoryOnly())

	assert.True(t, e.Set("services:p0", "page"))
	value, state := e.Get("services:p0")
	assert.Equal(t, models.CacheStateHit, state)
	assert.Equal(t, "page", value)

	require.NoError(t, e.Close())
}
