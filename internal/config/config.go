package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Log         LogConfig         `mapstructure:"log"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              string        `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"` // larger request bodies are rejected as bad data
}

// StorageConfig selects and configures the backend
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // sqlite, memory, redis, dynamodb
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Redis    RedisConfig    `mapstructure:"redis"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
}

// SQLiteConfig defines the database file
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// MemoryConfig defines the internal structure of the in-memory backend
type MemoryConfig struct {
	Shards uint `mapstructure:"shards"`
}

// RedisConfig defines the Redis connection and the set holding entries
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// DynamoDBConfig defines the table and the endpoint. An empty endpoint means AWS
type DynamoDBConfig struct {
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// PersistenceConfig defines settings of the change journal and snapshots
type PersistenceConfig struct {
	Journal  JournalConfig  `mapstructure:"journal"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// JournalConfig defines settings of the append-only change journal
type JournalConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Filename string `mapstructure:"filename"`
	Fsync    string `mapstructure:"fsync"` // always, everysec, no
}

// SnapshotConfig defines settings of periodic YAML snapshots
type SnapshotConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Filename string        `mapstructure:"filename"`
	Interval time.Duration `mapstructure:"interval"` // zero disables the periodic save
}

// MetricsConfig defines the Prometheus exposition listener
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("PHONEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when neither file nor ENV override anything
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	v.Unmarshal(&cfg) //nolint:errcheck // defaults always decode
	return &cfg
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.read_header_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// Storage
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite.path", "phonebook.db")
	v.SetDefault("storage.memory.shards", 16)
	v.SetDefault("storage.redis.addr", "127.0.0.1:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key", "phonebook:entries")
	v.SetDefault("storage.dynamodb.table", "phonebook")
	v.SetDefault("storage.dynamodb.region", "us-east-1")
	v.SetDefault("storage.dynamodb.endpoint", "")

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Persistence
	v.SetDefault("persistence.journal.enabled", false)
	v.SetDefault("persistence.journal.filename", "phonebook.journal")
	v.SetDefault("persistence.journal.fsync", "everysec")

	v.SetDefault("persistence.snapshot.enabled", false)
	v.SetDefault("persistence.snapshot.filename", "phonebook.yaml")
	v.SetDefault("persistence.snapshot.interval", "5m")

	// Metrics
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9100")
}
