package container

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-workflow/internal/application/dispatcher"
	"github.com/garyjia/voucher-workflow/internal/application/form"
	"github.com/garyjia/voucher-workflow/internal/application/port"
	"github.com/garyjia/voucher-workflow/internal/application/service"
	"github.com/garyjia/voucher-workflow/internal/application/workflow"
	"github.com/garyjia/voucher-workflow/internal/infrastructure/persistence/redisstore"
	"github.com/garyjia/voucher-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/voucher-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/voucher-workflow/internal/infrastructure/storage"
	"github.com/garyjia/voucher-workflow/internal/infrastructure/worker"
	"github.com/garyjia/voucher-workflow/pkg/database"
)

// StoreBundle holds the persistence side of whichever driver is configured.
type StoreBundle struct {
	Repo      port.VoucherRepository
	TxManager port.TransactionManager
	// Ping reports backend reachability for health checks
	Ping  func(ctx context.Context) error
	Close func() error
}

// ProvideStore opens the configured backend.
func ProvideStore(cfg *Config, logger *zap.Logger) (*StoreBundle, error) {
	switch cfg.Storage.Driver {
	case DriverRedis:
		return ProvideRedisStore(&cfg.Redis, logger)
	default:
		return ProvideSQLiteStore(&cfg.Database, logger)
	}
}

// ProvideSQLiteStore opens SQLite, applies the embedded migrations and
// builds the repository and transaction manager.
func ProvideSQLiteStore(cfg *DatabaseConfig, logger *zap.Logger) (*StoreBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(database.Migrations, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &StoreBundle{
		Repo:      repository.NewVoucherRepository(db.DB, logger),
		TxManager: sqlite.NewDB(db.DB, logger),
		Ping:      db.PingContext,
		Close:     db.Close,
	}, nil
}

// ProvideRedisStore connects to Redis and builds the locked list store.
func ProvideRedisStore(cfg *RedisConfig, logger *zap.Logger) (*StoreBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	store := redisstore.New(rdb, redisstore.Config{
		Key:      cfg.Key,
		LockTTL:  cfg.LockTTL,
		LockWait: cfg.LockWait,
	}, logger)

	if err := store.Ping(context.Background()); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	logger.Info("Redis connection established", zap.String("addr", cfg.Addr), zap.String("key", cfg.Key))

	return &StoreBundle{
		Repo:      store,
		TxManager: store,
		Ping:      store.Ping,
		Close:     rdb.Close,
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}))
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Store      *StoreBundle
	Dispatcher dispatcher.Dispatcher
	Workflow   *WorkflowConfig
	Export     *ExportConfig
	FeedSize   int
	Logger     *zap.Logger
}

// ProvideServices creates the engine and all application services and
// subscribes the notifier to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Store == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	logger := &zapLoggerAdapter{logger: deps.Logger}

	forms, err := form.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load entry form schemas: %w", err)
	}

	engine := workflow.NewEngine(workflow.WithStages(deps.Workflow.Stages))
	store := service.NewVoucherStore(deps.Store.Repo, deps.Store.TxManager, engine, logger,
		service.WithEventDispatcher(deps.Dispatcher))

	notifications := service.NewNotificationService(deps.FeedSize, logger)
	notifications.Register(deps.Dispatcher)

	exports := storage.NewLocalFileStorage(deps.Export.OutputDir, deps.Logger)

	return &ServiceBundle{
		Store:         store,
		Stages:        service.NewStageService(store, engine.Stages(), forms, logger),
		Notifications: notifications,
		Export:        service.NewExportService(store, exports, logger),
	}, nil
}

// ProvideWorkers creates the worker manager. The forward worker is only
// registered when an interval is configured.
func ProvideWorkers(cfg *WorkflowConfig, store service.VoucherStore, logger *zap.Logger) *worker.Manager {
	manager := worker.NewManager(logger.Named("workers"))
	if cfg.AutoForwardInterval > 0 {
		fwCfg := worker.DefaultForwardWorkerConfig()
		fwCfg.PollInterval = cfg.AutoForwardInterval
		if cfg.AutoForwardBatch > 0 {
			fwCfg.BatchSize = cfg.AutoForwardBatch
		}
		manager.Register(worker.NewForwardWorker(fwCfg, store, logger.Named("forward")))
	}
	return manager
}
