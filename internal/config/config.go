package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/voucher-workflow/internal/application/workflow"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

// EnvPrefix prefixes every environment override, e.g. VOUCHER_SERVER_PORT
const EnvPrefix = "VOUCHER"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig       `mapstructure:"server"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Redis         RedisConfig        `mapstructure:"redis"`
	Workflow      WorkflowConfig     `mapstructure:"workflow"`
	Export        ExportConfig       `mapstructure:"export"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logger        LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig selects the voucher backend
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or redis
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	Key      string        `mapstructure:"key"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	LockWait time.Duration `mapstructure:"lock_wait"`
}

// StageGateConfig overrides the queue gate of one stage
type StageGateConfig struct {
	RequiredPriorStatus []string `mapstructure:"required_prior_status"`
}

// WorkflowConfig holds stage gates and the auto-forwarder
type WorkflowConfig struct {
	// Stages is keyed by stage path name (first-approval, payment, check-approve)
	Stages              map[string]StageGateConfig `mapstructure:"stages"`
	AutoForwardInterval time.Duration              `mapstructure:"auto_forward_interval"`
	AutoForwardBatch    int                        `mapstructure:"auto_forward_batch"`
}

// ExportConfig holds register export configuration
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// NotificationConfig holds notice feed configuration
type NotificationConfig struct {
	FeedSize int `mapstructure:"feed_size"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads .env files, then configPath, then VOUCHER_* environment
// overrides. An empty configPath uses defaults and the environment only.
func Load(configPath string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Existing environment variables win over .env entries
		if err := gotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("storage.driver", "sqlite")

	v.SetDefault("database.path", "data/vouchers.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.key", "vouchers")
	v.SetDefault("redis.lock_ttl", 10*time.Second)
	v.SetDefault("redis.lock_wait", 5*time.Second)

	v.SetDefault("workflow.auto_forward_interval", time.Duration(0))
	v.SetDefault("workflow.auto_forward_batch", 20)

	v.SetDefault("export.output_dir", "exports")
	v.SetDefault("notifications.feed_size", 50)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Deployment settings commonly injected by the platform
	_ = v.BindEnv("redis.password", "VOUCHER_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.addr", "VOUCHER_REDIS_ADDR", "REDIS_ADDRESS")
	_ = v.BindEnv("server.port", "VOUCHER_SERVER_PORT", "PORT")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("storage.driver must be sqlite or redis, got %q", c.Storage.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Workflow.AutoForwardInterval < 0 {
		return fmt.Errorf("workflow.auto_forward_interval cannot be negative")
	}
	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir is required")
	}
	if _, err := c.StageTable(); err != nil {
		return err
	}
	return nil
}

// StageTable applies the configured gates on top of the default stages
func (c *Config) StageTable() (workflow.StageTable, error) {
	table := workflow.DefaultStages()
	for name, gate := range c.Workflow.Stages {
		stage, err := workflow.ParseStage(name)
		if err != nil {
			return nil, fmt.Errorf("workflow.stages: %w", err)
		}
		if len(gate.RequiredPriorStatus) == 0 {
			continue
		}
		statuses := make([]entity.Status, 0, len(gate.RequiredPriorStatus))
		for _, s := range gate.RequiredPriorStatus {
			statuses = append(statuses, entity.Status(strings.TrimSpace(s)))
		}
		table, err = table.WithRequiredPriorStatus(stage, statuses)
		if err != nil {
			return nil, fmt.Errorf("workflow.stages.%s: %w", name, err)
		}
	}
	return table, nil
}
