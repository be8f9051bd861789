package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/auth"
	"github.com/bkeenke/shm-admin-2/internal/cache"
	"github.com/bkeenke/shm-admin-2/internal/cache/engine"
	"github.com/bkeenke/shm-admin-2/internal/config"
	"github.com/bkeenke/shm-admin-2/internal/httpserver"
	"github.com/bkeenke/shm-admin-2/internal/interfaces"
	"github.com/bkeenke/shm-admin-2/internal/refresh"
	"github.com/bkeenke/shm-admin-2/internal/scheduler"
	"github.com/bkeenke/shm-admin-2/internal/storage/file"
	"github.com/bkeenke/shm-admin-2/internal/storage/keydb"
	"github.com/bkeenke/shm-admin-2/internal/storage/memory"
	"github.com/bkeenke/shm-admin-2/internal/storage/multi"
	"github.com/bkeenke/shm-admin-2/internal/storage/noop"
	"github.com/bkeenke/shm-admin-2/internal/upstream"
)

// CompositionRoot holds all application dependencies and wires them together.
//
// Initialization order:
// 1. Logger (needed by all other components)
// 2. Configuration
// 3. Storage (primary driver plus optional mirror)
// 4. Cache engine, hydrated from storage
// 5. Upstream client and loader, when an admin API is configured
// 6. Token issuer, when auth is enabled
// 7. Background schedulers and the HTTP server
type CompositionRoot struct {
	Config *config.Config
	Logger *zap.Logger

	Storage interfaces.Storage
	// StorageUnavailable is set when every configured tier fell back to no persistence
	StorageUnavailable bool

	Engine     *engine.Engine
	KeyBuilder interfaces.KeyBuilder
	Fetcher    interfaces.TableFetcher
	Loader     *refresh.Loader
	Issuer     *auth.Issuer

	Schedulers []*scheduler.Scheduler
	HTTPServer *httpserver.Server
}

// NewCompositionRoot creates and initializes all application dependencies.
func NewCompositionRoot() (*CompositionRoot, error) {
	root := &CompositionRoot{}

	if err := root.initLogger(false); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := root.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Rebuild the logger once the config says which flavour is wanted
	if root.Config.Log.Development {
		if err := root.initLogger(true); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	if err := root.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	root.initEngine()

	if err := root.initUpstream(); err != nil {
		return nil, fmt.Errorf("failed to initialize upstream client: %w", err)
	}

	if err := root.initIssuer(); err != nil {
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	root.initSchedulers()
	root.initHTTPServer()

	return root, nil
}

// initLogger initializes the application logger
func (r *CompositionRoot) initLogger(development bool) error {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	if r.Logger != nil {
		_ = r.Logger.Sync()
	}
	r.Logger = logger
	return nil
}

// loadConfig loads the application configuration
func (r *CompositionRoot) loadConfig() error {
	configPath := os.Getenv("CACHE_CONFIG_FILE")
	if configPath == "" {
		configPath = "/app/cache_config.yaml"
	}

	cfg, err := config.LoadConfig(configPath, r.Logger)
	if err != nil {
		return err
	}

	r.Config = cfg
	return nil
}

// initStorage builds the primary store and, when configured, mirrors it
// into a second tier
func (r *CompositionRoot) initStorage() error {
	primary, primaryDown, err := r.newStore(r.Config.Storage.Driver)
	if err != nil {
		return err
	}

	if r.Config.Storage.Mirror == "" {
		r.Storage = primary
		r.StorageUnavailable = primaryDown
		return nil
	}

	mirror, mirrorDown, err := r.newStore(r.Config.Storage.Mirror)
	if err != nil {
		_ = primary.Close()
		return err
	}
	r.StorageUnavailable = primaryDown && mirrorDown
	r.Storage = multi.NewMultiStore([]interfaces.Storage{primary, mirror}, r.Logger)
	r.Logger.Info("Storage mirroring enabled",
		zap.String("primary", r.Config.Storage.Driver),
		zap.String("mirror", r.Config.Storage.Mirror))
	return nil
}

// newStore builds the store for driver. The bool reports a KeyDB that could
// not be reached and was replaced by a store that persists nothing.
func (r *CompositionRoot) newStore(driver string) (interfaces.Storage, bool, error) {
	switch driver {
	case config.DriverFile:
		fileStore, err := file.NewStore(r.Config.Storage.File.Dir, r.Logger)
		if err != nil {
			return nil, false, err
		}
		return fileStore, false, nil

	case config.DriverKeyDB:
		keydbCfg := &r.Config.Storage.KeyDB
		client, err := keydb.NewRedisKeyDbClient(keydbCfg, r.Logger)
		if err != nil {
			r.Logger.Warn("Failed to connect to KeyDB, falling back to memory-only cache",
				zap.String("keydb_url", keydbCfg.URL),
				zap.Error(err))
			return noop.NewNoOpStore(), true, nil
		}
		return keydb.NewKeyDBStore(keydbCfg, client, r.Logger), false, nil

	case config.DriverMemory:
		bigCacheStore, err := memory.NewBigCacheStore(r.Config.Storage.BigCache.Size, r.Logger)
		if err != nil {
			return nil, false, err
		}
		return bigCacheStore, false, nil

	case config.DriverNone:
		r.Logger.Info("Persistence disabled")
		return noop.NewNoOpStore(), false, nil
	}
	return nil, false, fmt.Errorf("unknown storage driver: %s", driver)
}

// initEngine creates the cache engine and hydrates it from storage
func (r *CompositionRoot) initEngine() {
	r.Engine = engine.New(r.Config.InitialPolicy(), r.Storage, engine.Options{
		Namespace:  r.Config.Storage.Namespace,
		Deferred:   r.Config.Deferred(),
		MemoryOnly: r.StorageUnavailable,
	}, r.Logger)
	r.KeyBuilder = cache.NewKeyBuilder()

	r.Logger.Info("Cache engine initialized",
		zap.Any("policy", r.Engine.Policy()),
		zap.String("persistence", r.Config.Persistence.Mode),
		zap.Bool("memory_only", r.Engine.MemoryOnly()))
}

// initUpstream wires the table proxy when an admin API is configured
func (r *CompositionRoot) initUpstream() error {
	if r.Config.Upstream.BaseURL == "" {
		r.Logger.Info("Upstream not configured, table proxy disabled")
		return nil
	}

	client, err := upstream.NewClient(r.Config.Upstream.BaseURL, r.Config.Upstream.Timeout, r.Logger)
	if err != nil {
		return err
	}
	r.Fetcher = client
	r.Loader = refresh.NewLoader(r.Engine, r.Config.Upstream.RefreshTimeout, r.Logger)
	r.Logger.Info("Table proxy enabled", zap.String("base_url", r.Config.Upstream.BaseURL))
	return nil
}

// initIssuer enables bearer auth on the HTTP surface
func (r *CompositionRoot) initIssuer() error {
	if !r.Config.AuthEnabled() {
		r.Logger.Warn("Auth secret not set, HTTP API is unauthenticated")
		return nil
	}

	issuer, err := auth.NewIssuer(r.Config.Auth.Secret, r.Config.Auth.Issuer, r.Config.Auth.TokenTTL)
	if err != nil {
		return err
	}
	r.Issuer = issuer
	return nil
}

// initSchedulers creates the periodic flush, sweep and metrics tasks
func (r *CompositionRoot) initSchedulers() {
	if r.Config.Deferred() {
		r.Schedulers = append(r.Schedulers, scheduler.New(r.Config.Persistence.FlushInterval, r.Engine.Flush))
	}
	if r.Config.Sweep.Interval > 0 {
		r.Schedulers = append(r.Schedulers, scheduler.New(r.Config.Sweep.Interval, func() {
			if removed := r.Engine.Sweep(); removed > 0 {
				r.Logger.Debug("Swept expired entries", zap.Int("removed", removed))
			}
		}))
	}
	r.Schedulers = append(r.Schedulers, scheduler.New(r.Config.Metrics.Interval, r.Engine.CollectMetrics))
}

// StartSchedulers starts every background task
func (r *CompositionRoot) StartSchedulers() {
	r.Engine.CollectMetrics()
	for _, s := range r.Schedulers {
		s.Start()
	}
}

// initHTTPServer initializes the HTTP server
func (r *CompositionRoot) initHTTPServer() {
	r.HTTPServer = httpserver.NewServer(httpserver.Dependencies{
		Cache:      r.Engine,
		KeyBuilder: r.KeyBuilder,
		Loader:     r.Loader,
		Fetcher:    r.Fetcher,
		Issuer:     r.Issuer,
	}, r.Config.Server, r.Logger)
}

// Cleanup stops background work and flushes the cache before closing storage
func (r *CompositionRoot) Cleanup() error {
	var errs []error

	for _, s := range r.Schedulers {
		s.Stop()
	}

	if r.Loader != nil {
		r.Loader.Close()
	}

	if r.Engine != nil {
		if err := r.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache engine: %w", err))
		}
	}

	if r.Logger != nil {
		if err := r.Logger.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("failed to sync logger: %w", err))
		}
	}

	return errors.Join(errs...)
}
