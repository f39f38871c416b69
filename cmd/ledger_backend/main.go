package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
	"github.com/pse-app/pse-sub001/internal/core/services"
	"github.com/pse-app/pse-sub001/internal/handlers"
	"github.com/pse-app/pse-sub001/internal/middleware"
	"github.com/pse-app/pse-sub001/internal/platform/config"
	"github.com/pse-app/pse-sub001/internal/platform/metrics"
	"github.com/pse-app/pse-sub001/internal/repositories/database/pgsql"
	"github.com/pse-app/pse-sub001/internal/repositories/database/sqlite"
	"github.com/pse-app/pse-sub001/pkg/database"
	"github.com/pse-app/pse-sub001/pkg/logging"
)

// @title Ledger Backend API
// @version 1.0
// @description Group expense-splitting ledger: transactions and per-membership balances.

// @host localhost:8080
// @BasePath /api/v1

func main() {
	seedPath := flag.String("seed", "", "JSON file of users, groups and memberships to create before serving")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logger
	logger := logging.Setup(cfg.LogLevel, cfg.IsProduction)

	ctx := context.Background()

	repos, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("driver", cfg.DBDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	if *seedPath != "" {
		if err := seedFromFile(ctx, repos.MembershipRepo, *seedPath, logger); err != nil {
			logger.Error("Failed to seed database", slog.String("path", *seedPath), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	registry := metrics.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)
	serviceContainer := services.NewServiceContainer(cfg, repos, ledgerMetrics)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS)
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := handlers.RegisterRoutes(r, cfg, serviceContainer, metrics.Handler(registry)); err != nil {
		logger.Error("Failed to register routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Server starting",
		slog.String("port", cfg.Port),
		slog.String("driver", cfg.DBDriver),
		slog.String("currency", cfg.Currency.CurrencyCode))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// openStore connects the configured storage driver and applies its schema.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, err
		}
		logger.Info("SQLite database opened", slog.String("path", cfg.SQLitePath))
		return sqlite.NewRepositoryProvider(db), func() {
			if err := db.Close(); err != nil {
				logger.Error("Error closing SQLite database", slog.String("error", err.Error()))
			}
		}, nil
	default:
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, err
		}
		logger.Info("Running database migrations...")
		if err := pgsql.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			dbPool.Close()
			return portsrepo.RepositoryProvider{}, nil, err
		}
		return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool) }, nil
	}
}
