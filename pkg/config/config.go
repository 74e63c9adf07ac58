package config

import (
	"fmt"
	"time"

	"stones/pkg/dberrors"
	"stones/pkg/persistence"
)

// DefaultFlushThreshold is the memtable entry count that triggers a flush.
const DefaultFlushThreshold = 1000

// Config - root of the application configuration, parsed from YAML.
type Config struct {
	Logger LoggerConfig `yaml:"logger"`
	Server ServerConfig `yaml:"http-server"`
	DB     `yaml:"db"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type DB struct {
	Memtable    MemtableConfig    `yaml:"memtable"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

type MemtableConfig struct {
	// FlushThreshold counts entries, tombstones included.
	FlushThreshold int `yaml:"flush_threshold"`
}

type PersistenceConfig struct {
	RootPath      string `yaml:"path"`
	IndexInterval int    `yaml:"index_interval"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		DB: DefaultDB(),
	}
}

// DefaultDB returns the storage part of Default.
func DefaultDB() DB {
	return DB{
		Memtable: MemtableConfig{
			FlushThreshold: DefaultFlushThreshold,
		},
		Persistence: PersistenceConfig{
			RootPath:      "./data",
			IndexInterval: persistence.DefaultIndexInterval,
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: http-server.port %d out of range", dberrors.ErrInvalidArgument, c.Server.Port)
	}
	switch c.Logger.Level {
	case "DEBUG", "INFO", "WARN", "ERROR", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logger.level %q", dberrors.ErrInvalidArgument, c.Logger.Level)
	}
	return c.DB.Validate()
}

func (db *DB) Validate() error {
	if db.Memtable.FlushThreshold < 1 {
		return fmt.Errorf("%w: memtable.flush_threshold must be at least 1", dberrors.ErrInvalidArgument)
	}
	if db.Persistence.RootPath == "" {
		return fmt.Errorf("%w: persistence.path is empty", dberrors.ErrInvalidArgument)
	}
	if db.Persistence.IndexInterval < 0 {
		return fmt.Errorf("%w: persistence.index_interval is negative", dberrors.ErrInvalidArgument)
	}
	return nil
}
