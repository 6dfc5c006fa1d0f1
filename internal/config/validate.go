package config

import (
	"errors"
	"fmt"
	"math/bits"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverDynamoDB = "dynamodb"
)

var (
	ErrUnknownDriver = errors.New("config: unknown storage driver")
	ErrBadShards     = errors.New("config: memory shards must be a power of 2 not greater than 64")
	ErrUnknownFsync  = errors.New("config: journal fsync must be always, everysec or no")
	ErrMissingValue  = errors.New("config: missing value")
)

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Persistence.Validate()
}

func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: server.port", ErrMissingValue)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: server.max_body_bytes must be positive", ErrMissingValue)
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("%w: storage.sqlite.path", ErrMissingValue)
		}
	case DriverMemory:
		if bits.OnesCount(c.Memory.Shards) != 1 || c.Memory.Shards > 64 {
			return ErrBadShards
		}
	case DriverRedis:
		if c.Redis.Addr == "" || c.Redis.Key == "" {
			return fmt.Errorf("%w: storage.redis.addr and storage.redis.key", ErrMissingValue)
		}
	case DriverDynamoDB:
		if c.DynamoDB.Table == "" {
			return fmt.Errorf("%w: storage.dynamodb.table", ErrMissingValue)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	return nil
}

func (c *PersistenceConfig) Validate() error {
	if c.Journal.Enabled {
		switch c.Journal.Fsync {
		case "always", "everysec", "no":
		default:
			return ErrUnknownFsync
		}
		if c.Journal.Filename == "" {
			return fmt.Errorf("%w: persistence.journal.filename", ErrMissingValue)
		}
	}
	if c.Snapshot.Enabled && c.Snapshot.Filename == "" {
		return fmt.Errorf("%w: persistence.snapshot.filename", ErrMissingValue)
	}
	return nil
}
