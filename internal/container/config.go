// Package container provides dependency injection and lifecycle management
// for the voucher workflow service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/voucher-workflow/internal/application/workflow"
)

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config holds all configuration for the Container.
type Config struct {
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Workflow WorkflowConfig
	Export   ExportConfig

	// NotificationFeedSize is how many notices are kept per user
	NotificationFeedSize int
}

// StorageConfig selects where vouchers live.
type StorageConfig struct {
	// Driver is "sqlite" or "redis"
	Driver string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis settings for the redis driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// Key holds the voucher list; Key+":lock" is the write lock
	Key      string
	LockTTL  time.Duration
	LockWait time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WorkflowConfig holds stage gates and the auto-forwarder.
type WorkflowConfig struct {
	Stages workflow.StageTable

	// AutoForwardInterval > 0 enables the forward worker
	AutoForwardInterval time.Duration
	AutoForwardBatch    int
}

// ExportConfig holds register export settings.
type ExportConfig struct {
	// OutputDir is the base directory of saved registers
	OutputDir string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Driver: DriverSQLite},
		Database: DatabaseConfig{
			Path:            "data/vouchers.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 20,
			Key:      "vouchers",
			LockTTL:  10 * time.Second,
			LockWait: 5 * time.Second,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Workflow: WorkflowConfig{
			Stages:           workflow.DefaultStages(),
			AutoForwardBatch: 20,
		},
		Export:               ExportConfig{OutputDir: "exports"},
		NotificationFeedSize: 50,
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverRedis, c.Storage.Driver)
	}

	for _, stage := range workflow.AllStages {
		if _, err := c.Workflow.Stages.Get(stage); err != nil {
			return fmt.Errorf("workflow stages: %w", err)
		}
	}
	if c.Workflow.AutoForwardInterval < 0 {
		return fmt.Errorf("workflow.auto_forward_interval cannot be negative")
	}
	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir is required")
	}
	return nil
}
