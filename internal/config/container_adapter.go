package config

import (
	"github.com/garyjia/voucher-workflow/internal/container"
)

// ToContainerConfig converts the file-based Config into a container.Config.
// Call Validate first; an invalid stage table falls back to the defaults.
func (c *Config) ToContainerConfig() *container.Config {
	stages, err := c.StageTable()
	if err != nil {
		stages = container.DefaultConfig().Workflow.Stages
	}

	return &container.Config{
		Storage: container.StorageConfig{Driver: c.Storage.Driver},
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Redis: container.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			PoolSize: c.Redis.PoolSize,
			Key:      c.Redis.Key,
			LockTTL:  c.Redis.LockTTL,
			LockWait: c.Redis.LockWait,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Workflow: container.WorkflowConfig{
			Stages:              stages,
			AutoForwardInterval: c.Workflow.AutoForwardInterval,
			AutoForwardBatch:    c.Workflow.AutoForwardBatch,
		},
		Export:               container.ExportConfig{OutputDir: c.Export.OutputDir},
		NotificationFeedSize: c.Notifications.FeedSize,
	}
}
