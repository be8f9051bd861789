package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bkeenke/shm-admin-2/internal/config"
)

// unreachableKeyDB points at a port nothing listens on
func unreachableKeyDB() config.KeyDBConfig {
	return config.KeyDBConfig{
		URL: "redis://127.0.0.1:1",
		Connection: config.ConnectionConfig{
			ConnectTimeout: 200 * time.Millisecond,
			SendTimeout:    200 * time.Millisecond,
			ReadTimeout:    200 * time.Millisecond,
		},
	}
}

func TestCompositionRoot_UnreachableKeyDB_StartsMemoryOnly(t *testing.T) {
	root := &CompositionRoot{
		Logger: zaptest.NewLogger(t),
		Config: &config.Config{
			Storage: config.StorageConfig{
				Driver:    config.DriverKeyDB,
				Namespace: "test:cache",
				KeyDB:     unreachableKeyDB(),
			},
		},
	}

	require.NoError(t, root.initStorage())
	root.initEngine()
	t.Cleanup(func() { _ = root.Engine.Close() })

	assert.True(t, root.StorageUnavailable)
	assert.True(t, root.Engine.MemoryOnly(), "health must not report persistence as ok")
}

func TestCompositionRoot_UnreachableKeyDB_WithFileMirror(t *testing.T) {
	root := &CompositionRoot{
		Logger: zaptest.NewLogger(t),
		Config: &config.Config{
			Storage: config.StorageConfig{
				Driver:    config.DriverKeyDB,
				Mirror:    config.DriverFile,
				Namespace: "test:cache",
				File:      config.FileConfig{Dir: t.TempDir()},
				KeyDB:     unreachableKeyDB(),
			},
		},
	}

	require.NoError(t, root.initStorage())
	root.initEngine()
	t.Cleanup(func() { _ = root.Engine.Close() })

	assert.False(t, root.StorageUnavailable)
	assert.False(t, root.Engine.MemoryOnly(), "the file mirror still persists")
}

func TestCompositionRoot_StorageInitLoggedOnce(t *testing.T) {
	tests := []struct {
		name    string
		storage config.StorageConfig
		message string
	}{
		{
			name:    "file",
			storage: config.StorageConfig{Driver: config.DriverFile, File: config.FileConfig{Dir: t.TempDir()}},
			message: "File storage initialized",
		},
		{
			name:    "bigcache",
			storage: config.StorageConfig{Driver: config.DriverMemory, BigCache: config.BigCacheConfig{Size: 1}},
			message: "BigCache storage initialized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			root := &CompositionRoot{
				Logger: zap.New(core),
				Config: &config.Config{Storage: tt.storage},
			}

			require.NoError(t, root.initStorage())
			t.Cleanup(func() { _ = root.Storage.Close() })

			assert.Equal(t, 1, logs.FilterMessage(tt.message).Len())
		})
	}
}
