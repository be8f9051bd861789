package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewBigCacheStore(t *testing.T) {
	store, err := NewBigCacheStore(10, zap.NewNop())

	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.NotNil(t, store.cache)
	assert.NoError(t, store.Close())
}

func TestBigCacheStore_ReadMissing(t *testing.T) {
	store, err := NewBigCacheStore(10, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	data, found, err := store.Read(context.Background(), "non-existent-key")

	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestBigCacheStore_WriteAndRead(t *testing.T) {
	store, err := NewBigCacheStore(10, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "shm-admin:cache", []byte("first")))
	require.NoError(t, store.Write(ctx, "shm-admin:cache", []byte("second")))

	data, found, err := store.Read(ctx, "shm-admin:cache")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("second"), data)
}

func TestBigCacheStore_LargeBlob(t *testing.T) {
	store, err := NewBigCacheStore(10, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	blob := bytes.Repeat([]byte("x"), 2*1024*1024)
	require.NoError(t, store.Write(ctx, "big", blob))

	data, found, err := store.Read(ctx, "big")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, data, len(blob))
}
