package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bkeenke/shm-admin-2/internal/models"
)

// Storage drivers
const (
	DriverFile   = "file"
	DriverKeyDB  = "keydb"
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Persistence modes
const (
	ModeWriteThrough = "write_through"
	ModeDeferred     = "deferred"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the main configuration structure
type Config struct {
	Policy      models.PolicyPatch `yaml:"policy"`
	Storage     StorageConfig      `yaml:"storage"`
	Persistence PersistenceConfig  `yaml:"persistence"`
	Sweep       IntervalConfig     `yaml:"sweep"`
	Metrics     IntervalConfig     `yaml:"metrics"`
	Server      ServerConfig       `yaml:"server"`
	Upstream    UpstreamConfig     `yaml:"upstream"`
	Auth        AuthConfig         `yaml:"auth"`
	Log         LogConfig          `yaml:"log"`
}

// StorageConfig selects where the cache blob is mirrored
type StorageConfig struct {
	Driver    string         `yaml:"driver" validate:"oneof=file keydb memory none"`
	Mirror    string         `yaml:"mirror" validate:"omitempty,oneof=file keydb memory,nefield=Driver"`
	Namespace string         `yaml:"namespace" validate:"required"`
	File      FileConfig     `yaml:"file"`
	KeyDB     KeyDBConfig    `yaml:"keydb"`
	BigCache  BigCacheConfig `yaml:"bigcache"`
}

// FileConfig configures the local file store
type FileConfig struct {
	Dir string `yaml:"dir"`
}

// KeyDBConfig configures the KeyDB/Redis store
type KeyDBConfig struct {
	URL        string           `yaml:"url"`
	Connection ConnectionConfig `yaml:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive"`
}

// ConnectionConfig holds KeyDB timeouts
type ConnectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// KeepaliveConfig holds KeyDB pool settings
type KeepaliveConfig struct {
	PoolSize       int           `yaml:"pool_size" validate:"gte=0"`
	MaxIdleTimeout time.Duration `yaml:"max_idle_timeout"`
}

// BigCacheConfig configures the in-process store
type BigCacheConfig struct {
	Size int `yaml:"size" validate:"gte=0"` // MB
}

// PersistenceConfig selects write-through or deferred persistence
type PersistenceConfig struct {
	Mode          string        `yaml:"mode" validate:"oneof=write_through deferred"`
	FlushInterval time.Duration `yaml:"flush_interval" validate:"required_if=Mode deferred"`
}

// IntervalConfig configures a periodic task; zero disables it
type IntervalConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	SocketPath      string        `yaml:"socket_path"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig points the table proxy at the admin API
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout        time.Duration `yaml:"timeout"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// AuthConfig enables bearer token checks when Secret is set
type AuthConfig struct {
	Secret   string        `yaml:"secret" validate:"omitempty,min=16"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// LogConfig selects the logger flavour
type LogConfig struct {
	Development bool `yaml:"development"`
}

// LoadConfig loads configuration from file path.
// A missing file is not an error: defaults and environment overrides still apply.
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	var config Config

	file, err := os.Open(configPath)
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode YAML config: %w", err)
		}
	case os.IsNotExist(err):
		logger.Warn("Config file not found, using defaults", zap.String("path", configPath))
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnv(logger)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// InitialPolicy returns the policy the engine starts with before hydration
func (c *Config) InitialPolicy() models.CachePolicy {
	return models.DefaultPolicy().Apply(c.Policy)
}

// Deferred reports whether persistence is batched by the flush task
func (c *Config) Deferred() bool {
	return c.Persistence.Mode == ModeDeferred
}

// AuthEnabled reports whether the HTTP surface requires bearer tokens
func (c *Config) AuthEnabled() bool {
	return c.Auth.Secret != ""
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverFile
	}
	if c.Storage.Namespace == "" {
		c.Storage.Namespace = "shm-admin:cache"
	}
	if c.Storage.File.Dir == "" {
		c.Storage.File.Dir = "/app/data"
	}
	if c.Storage.BigCache.Size == 0 {
		c.Storage.BigCache.Size = 64
	}
	c.Storage.KeyDB.applyDefaults()

	if c.Persistence.Mode == "" {
		c.Persistence.Mode = ModeWriteThrough
	}
	if c.Persistence.Mode == ModeDeferred && c.Persistence.FlushInterval == 0 {
		c.Persistence.FlushInterval = 5 * time.Second
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 15 * time.Second
	}

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 10 * time.Second
	}
	if c.Upstream.RefreshTimeout == 0 {
		c.Upstream.RefreshTimeout = 30 * time.Second
	}

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "table-cache"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
}

func (k *KeyDBConfig) applyDefaults() {
	if k.Connection.ConnectTimeout == 0 {
		k.Connection.ConnectTimeout = time.Second
	}
	if k.Connection.SendTimeout == 0 {
		k.Connection.SendTimeout = time.Second
	}
	if k.Connection.ReadTimeout == 0 {
		k.Connection.ReadTimeout = time.Second
	}
	if k.Keepalive.PoolSize == 0 {
		k.Keepalive.PoolSize = 10
	}
	if k.Keepalive.MaxIdleTimeout == 0 {
		k.Keepalive.MaxIdleTimeout = 10 * time.Second
	}
}

// applyEnv lets deployment secrets and addresses override the file
func (c *Config) applyEnv(logger *zap.Logger) {
	if addr := os.Getenv("CACHE_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if socket := os.Getenv("CACHE_SOCKET_PATH"); socket != "" {
		c.Server.SocketPath = socket
	}
	if base := os.Getenv("CACHE_UPSTREAM_URL"); base != "" {
		c.Upstream.BaseURL = base
	}
	if secret := os.Getenv("CACHE_AUTH_SECRET"); secret != "" {
		c.Auth.Secret = secret
	}
	if c.usesKeyDB() {
		c.Storage.KeyDB.URL = GetKeyDBURL(c.Storage.KeyDB.URL, logger)
	}
}

func (c *Config) usesKeyDB() bool {
	return c.Storage.Driver == DriverKeyDB || c.Storage.Mirror == DriverKeyDB
}
