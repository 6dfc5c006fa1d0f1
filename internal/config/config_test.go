package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "phonebook.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, uint(16), cfg.Storage.Memory.Shards)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Persistence.Journal.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Persistence.Snapshot.Interval)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)

	assert.Equal(t, cfg, Default())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: "8080"
storage:
  driver: memory
  memory:
    shards: 4
log:
  level: debug
  format: console
persistence:
  journal:
    enabled: true
    fsync: always
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, uint(4), cfg.Storage.Memory.Shards)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Persistence.Journal.Enabled)
	assert.Equal(t, "always", cfg.Persistence.Journal.Fsync)
	// untouched keys keep their defaults
	assert.Equal(t, "phonebook.journal", cfg.Persistence.Journal.Filename)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PHONEBOOK_SERVER_PORT", "9000")
	t.Setenv("PHONEBOOK_STORAGE_DRIVER", "redis")
	t.Setenv("PHONEBOOK_STORAGE_REDIS_ADDR", "redis:6379")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("PHONEBOOK_STORAGE_DRIVER", "postgres")

	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"empty port", func(c *Config) { c.Server.Port = "" }, ErrMissingValue},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }, ErrMissingValue},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, ErrUnknownDriver},
		{"empty sqlite path", func(c *Config) { c.Storage.SQLite.Path = "" }, ErrMissingValue},
		{"shards not power of two", func(c *Config) {
			c.Storage.Driver = DriverMemory
			c.Storage.Memory.Shards = 6
		}, ErrBadShards},
		{"too many shards", func(c *Config) {
			c.Storage.Driver = DriverMemory
			c.Storage.Memory.Shards = 128
		}, ErrBadShards},
		{"redis without key", func(c *Config) {
			c.Storage.Driver = DriverRedis
			c.Storage.Redis.Key = ""
		}, ErrMissingValue},
		{"dynamodb without table", func(c *Config) {
			c.Storage.Driver = DriverDynamoDB
			c.Storage.DynamoDB.Table = ""
		}, ErrMissingValue},
		{"unknown fsync", func(c *Config) {
			c.Persistence.Journal.Enabled = true
			c.Persistence.Journal.Fsync = "sometimes"
		}, ErrUnknownFsync},
		{"unknown fsync while disabled", func(c *Config) {
			c.Persistence.Journal.Fsync = "sometimes"
		}, nil},
		{"snapshot without file", func(c *Config) {
			c.Persistence.Snapshot.Enabled = true
			c.Persistence.Snapshot.Filename = ""
		}, ErrMissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
