package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, BackendFilesystem, cfg.Backend.Kind)
	assert.Equal(t, 400, cfg.Ingest.HashChannelCapacity)
	assert.Equal(t, 16, cfg.Ingest.UploadFanout)
	assert.Equal(t, LockNone, cfg.Lock.Backend)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
logging:
  level: debug
backend:
  kind: s3
  s3:
    bucket: my-bucket
    region: us-east-1
ingest:
  upload_fanout: 4
lock:
  backend: redis
  addr: localhost:6379
  ttl: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, BackendS3, cfg.Backend.Kind)
	assert.Equal(t, "my-bucket", cfg.Backend.S3.Bucket)
	assert.Equal(t, 4, cfg.Ingest.UploadFanout)
	assert.Equal(t, LockRedis, cfg.Lock.Backend)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
}

func TestLoadEnvOverridesFileAndDefaults(t *testing.T) {
	t.Setenv("CHUNKVAULT_LOGGING_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}
