// Package config loads layered configuration for the chunkvault engine,
// following the teacher/pack convention (viper: environment variables >
// config file > defaults). No command-line flags are bound here.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the root configuration shape. Precedence (highest to
// lowest): environment variables (CHUNKVAULT_*), the config file, then
// the defaults set below.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Backend BackendConfig `mapstructure:"backend"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Restore RestoreConfig `mapstructure:"restore"`
	Lock    LockConfig    `mapstructure:"lock"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls zerolog setup.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// BackendKind selects which store.Backend implementation to construct.
type BackendKind string

const (
	BackendFilesystem BackendKind = "filesystem"
	BackendS3         BackendKind = "s3"
)

// BackendConfig selects and configures the object store backend.
type BackendConfig struct {
	Kind       BackendKind      `mapstructure:"kind"`
	Filesystem FilesystemConfig `mapstructure:"filesystem"`
	S3         S3Config         `mapstructure:"s3"`
}

// FilesystemConfig configures internal/store/fsstore.
type FilesystemConfig struct {
	DataDir string `mapstructure:"data_dir"`
	TempDir string `mapstructure:"temp_dir"`
}

// S3Config configures internal/store/s3store.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// CacheConfig configures the optional badger-backed advisory cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// IngestConfig exposes internal/ingest.Config's tunables.
type IngestConfig struct {
	HashChannelCapacity int `mapstructure:"hash_channel_capacity"`
	UploadFanout        int `mapstructure:"upload_fanout"`
}

// RestoreConfig exposes internal/restore.Config's tunables.
type RestoreConfig struct {
	ChannelCapacity int `mapstructure:"channel_capacity"`
}

// LockBackend selects the internal/singleflight.Locker implementation.
type LockBackend string

const (
	LockNone   LockBackend = "none"
	LockMemory LockBackend = "memory"
	LockRedis  LockBackend = "redis"
)

// LockConfig configures the optional advisory single-writer lock.
type LockConfig struct {
	Backend LockBackend   `mapstructure:"backend"`
	Addr    string        `mapstructure:"addr"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configPath (if non-empty) plus CHUNKVAULT_-prefixed
// environment variables into a Config, applying defaults for anything
// neither source sets.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHUNKVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %q: %w", configPath, err)
			}
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("backend.kind", string(BackendFilesystem))
	v.SetDefault("backend.filesystem.data_dir", "./data")
	v.SetDefault("backend.filesystem.temp_dir", "./data/.tmp")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "./cache")

	v.SetDefault("ingest.hash_channel_capacity", 400)
	v.SetDefault("ingest.upload_fanout", 16)

	v.SetDefault("restore.channel_capacity", 400)

	v.SetDefault("lock.backend", string(LockNone))
	v.SetDefault("lock.ttl", 30*time.Second)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
