package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/ullaszensar/mealtrackpro/internal/api/http"
	"github.com/ullaszensar/mealtrackpro/internal/api/http/handlers"
	"github.com/ullaszensar/mealtrackpro/internal/auth"
	"github.com/ullaszensar/mealtrackpro/internal/config"
	"github.com/ullaszensar/mealtrackpro/internal/events"
	"github.com/ullaszensar/mealtrackpro/internal/observability"
	"github.com/ullaszensar/mealtrackpro/internal/persistence"
	"github.com/ullaszensar/mealtrackpro/internal/repository"
	"github.com/ullaszensar/mealtrackpro/internal/repository/memory"
	"github.com/ullaszensar/mealtrackpro/internal/repository/sqlite"
	"github.com/ullaszensar/mealtrackpro/internal/service"
	"github.com/ullaszensar/mealtrackpro/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := map[string]handlers.Pinger{}
	store, closeStore, err := openStore(ctx, cfg, logger, deps)
	if err != nil {
		logger.Fatal("failed to open record store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	var revocations auth.RevocationStore
	if cfg.Redis.Enabled {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		deps["redis"] = redis
		revocations = auth.NewRedisRevocationStore(redis.Client)
	} else {
		logger.Warn("redis disabled; logout will not revoke tokens")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:    store.Users,
		Revocations: revocations,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	if cfg.Auth.SeedDemoUsers {
		if err := authService.SeedDemoUsers(ctx); err != nil {
			logger.Fatal("failed to seed demo users", zap.Error(err))
		}
	}

	mealService := service.NewMealService(service.MealDependencies{
		Store:      store,
		Meals:      cfg.Meals,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	reportService := service.NewReportService(mealService)

	digest := worker.NewDigestWorker(mealService, reportService, logger, cfg.Notification.DigestInterval())
	go digest.Run(ctx)

	app := httptransport.NewApp(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, deps),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(authService),
		Submissions:    handlers.NewSubmissionsHandler(mealService),
		Reports:        handlers.NewReportsHandler(reportService, mealService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users, revocations, logger),
	})

	go func() {
		logger.Info("http server starting",
			zap.String("addr", cfg.App.Addr()),
			zap.String("store", cfg.Store.Driver),
			zap.Int("cutoff_hour", cfg.Meals.CutoffHour),
			zap.String("timezone", cfg.Meals.Location.String()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

// openStore builds the configured record store and registers its readiness probe.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, deps map[string]handlers.Pinger) (repository.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return repository.Store{}, nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, persistence.DefaultMigrationsDir, logger); err != nil {
				pg.Close()
				return repository.Store{}, nil, err
			}
		}
		deps["postgres"] = pg
		return repository.NewPostgresStore(pg.Pool), pg.Close, nil
	case config.StoreSQLite:
		db, err := persistence.NewSQLite(cfg.Store.SQLitePath, logger)
		if err != nil {
			return repository.Store{}, nil, err
		}
		if err := sqlite.Migrate(db.DB); err != nil {
			db.Close()
			return repository.Store{}, nil, err
		}
		deps["sqlite"] = db
		return sqlite.New(db.DB), db.Close, nil
	default:
		logger.Warn("using in-memory record store; data is lost on restart")
		return memory.New(), func() {}, nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
