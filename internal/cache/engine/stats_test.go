package engine

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkeenke/shm-admin-2/internal/metrics"
	"github.com/bkeenke/shm-admin-2/internal/models"
)

func TestEngine_Stats_Formatting(t *testing.T) {
	e, clk, _ := newTestEngine(t, scenarioPolicy())

	e.Set("services:p0", "abc") // serialized as "abc" with quotes, 5 bytes
	clk.Add(90 * time.Second)

	stats := e.Stats()
	assert.Equal(t, 1, stats.TotalKeys)
	assert.Equal(t, int64(5), stats.TotalBytes)
	assert.Equal(t, "5 B", stats.TotalSize)
	require.Len(t, stats.Entries, 1)

	assert.Equal(t, models.EntryStat{
		Key:              "services:p0",
		Size:             "5 B",
		Age:              "1m",
		ExpiresIn:        "3m",
		SizeBytes:        5,
		AgeSeconds:       90,
		ExpiresInSeconds: 210,
	}, stats.Entries[0])
}

func TestEngine_Stats_LargeValues(t *testing.T) {
	e, _, _ := newTestEngine(t, scenarioPolicy())

	payload := make([]int, 1000) // "[0,0,...]" is 2001 bytes
	e.Set("big", payload)

	stats := e.Stats()
	assert.Equal(t, int64(2001), stats.TotalBytes)
	assert.Equal(t, "2.0 KB", stats.TotalSize)
}

func TestEngine_Stats_SkipsExpiredWithoutEvicting(t *testing.T) {
	e, clk, _ := newTestEngine(t, scenarioPolicy())

	e.Set("old", 1)
	clk.Add(310 * time.Second)
	e.Set("fresh", 2)

	stats := e.Stats()
	assert.Equal(t, 1, stats.TotalKeys)
	require.Len(t, stats.Entries, 1)
	assert.Equal(t, "fresh", stats.Entries[0].Key)

	// Still physically present: the read reports Expired, not Miss.
	_, state := e.Get("old")
	assert.Equal(t, models.CacheStateExpired, state)
}

func TestEngine_Stats_UnserializableValue(t *testing.T) {
	e, _, _ := newTestEngine(t, scenarioPolicy())

	e.Set("ok", 1)
	e.Set("bad", func() {})

	stats := e.Stats()
	assert.Equal(t, 2, stats.TotalKeys)
	assert.Equal(t, int64(1), stats.TotalBytes)
	require.Len(t, stats.Entries, 1)
	assert.Equal(t, "ok", stats.Entries[0].Key)
}

func TestEngine_CollectMetrics(t *testing.T) {
	e, _, _ := newTestEngine(t, scenarioPolicy())

	e.Set("a", "abc")
	e.Set("b", 12)
	e.CollectMetrics()

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.CacheKeys))
	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.CacheBytes))
}
