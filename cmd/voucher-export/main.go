// Command voucher-export writes the voucher register workbook (active and
// closed sheets) into the configured export directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-workflow/internal/config"
	"github.com/garyjia/voucher-workflow/internal/container"
	"github.com/garyjia/voucher-workflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	name := flag.String("name", "", "workbook file name inside export.output_dir (default voucher-register-<timestamp>.xlsx)")
	outputDir := flag.String("output-dir", "", "override export.output_dir")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if err := run(*configPath, *name, *outputDir, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "voucher-export: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, name, outputDir string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if outputDir != "" {
		cfg.Export.OutputDir = outputDir
	}

	logger, err := utils.NewCLILogger(verbose)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	cc := cfg.ToContainerConfig()
	// One-shot run; never start the background forwarder
	cc.Workflow.AutoForwardInterval = 0

	c, err := container.NewContainer(cc, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown error", zap.Error(err))
		}
	}()

	path, err := c.Services().Export.SaveRegister(ctx, name)
	if err != nil {
		return err
	}
	logger.Info("Register exported", zap.String("path", path))
	fmt.Println(path)
	return nil
}
