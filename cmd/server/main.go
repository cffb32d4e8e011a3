package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/config"
	"github.com/expenseflow/expenseflow/internal/infrastructure/external/exchange"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/repository"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
	"github.com/expenseflow/expenseflow/internal/infrastructure/worker"
	httpserver "github.com/expenseflow/expenseflow/internal/interfaces/http"
	"github.com/expenseflow/expenseflow/pkg/database"
	"github.com/expenseflow/expenseflow/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting ExpenseFlow approval engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Create the database directory
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		logger.Fatal("Failed to create database directory", zap.Error(err))
	}

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories and transaction manager
	txManager := sqlite.NewDB(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	ruleRepo := repository.NewRuleRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	settingsRepo := repository.NewSettingsRepository(db.DB, logger)

	// Initialize exchange-rate client
	rateProvider := exchange.NewClient(exchange.Config{
		BaseURL:           cfg.Exchange.BaseURL,
		Timeout:           cfg.Exchange.Timeout,
		CacheTTL:          cfg.Exchange.CacheTTL,
		RequestsPerMinute: cfg.Exchange.RequestsPerMinute,
	}, logger)

	// Initialize services
	svcLogger := newServiceLogger(logger)
	expenseService := service.NewExpenseService(
		expenseRepo,
		ruleRepo,
		userRepo,
		settingsRepo,
		rateProvider,
		txManager,
		svcLogger,
		service.ExpenseServiceOptions{
			EnforceCurrentApprover: cfg.Approval.EnforceCurrentApprover,
		},
	)
	ruleService := service.NewRuleService(ruleRepo, userRepo, svcLogger)
	userService := service.NewUserService(userRepo, svcLogger)
	reportService := service.NewReportService(expenseRepo, settingsRepo, svcLogger)
	settingsService := service.NewSettingsService(settingsRepo, rateProvider, svcLogger)

	// Initialize HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		expenseService,
		ruleService,
		userService,
		reportService,
		settingsService,
		svcLogger,
	)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Keep the exchange-rate cache warm in the background
	refresher := worker.NewRateRefresher(worker.RateRefresherConfig{
		RefreshInterval: cfg.Exchange.RefreshInterval,
		RequestTimeout:  cfg.Exchange.Timeout,
	}, rateProvider, settingsRepo, logger)
	if err := refresher.Start(ctx); err != nil {
		logger.Fatal("Failed to start rate refresher", zap.Error(err))
	}
	defer refresher.Stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// serviceLogger adapts a zap logger to the key-value logging interface
// used by the service and HTTP layers
type serviceLogger struct {
	sugar *zap.SugaredLogger
}

func newServiceLogger(logger *zap.Logger) *serviceLogger {
	return &serviceLogger{sugar: logger.Sugar()}
}

func (l *serviceLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *serviceLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *serviceLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}
