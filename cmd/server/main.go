package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-workflow/internal/config"
	"github.com/garyjia/voucher-workflow/internal/container"
	httpapi "github.com/garyjia/voucher-workflow/internal/interfaces/http"
	"github.com/garyjia/voucher-workflow/pkg/utils"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "voucher-workflow",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Voucher Workflow Service",
		zap.String("version", version),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}

	svc := c.Services()
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Mode:         cfg.Server.Mode,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, httpapi.Services{
		Store:         svc.Store,
		Stages:        svc.Stages,
		Notifications: svc.Notifications,
		Export:        svc.Export,
	}, func(ctx context.Context) (bool, interface{}) {
		h := c.Health(ctx)
		return h.Overall, h.Components
	}, c.KVLogger())

	// Blocks until a signal arrives or the listener fails
	serveErr := server.Start(ctx)

	logger.Info("Shutting down...")
	done := make(chan error, 1)
	go func() { done <- c.Close() }()
	select {
	case err := <-done:
		if err != nil {
			logger.Error("Container shutdown error", zap.Error(err))
		}
	case <-time.After(30 * time.Second):
		logger.Error("Container shutdown timed out")
	}

	if serveErr != nil {
		logger.Error("Server exited with error", zap.Error(serveErr))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}
