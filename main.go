package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/camden-git/identitybackend/config"
	"github.com/camden-git/identitybackend/database"
	"github.com/camden-git/identitybackend/handlers"
	"github.com/camden-git/identitybackend/logging"
	"github.com/camden-git/identitybackend/realtime"
	"github.com/camden-git/identitybackend/redis"
	"github.com/camden-git/identitybackend/repository"
	"github.com/camden-git/identitybackend/services"
	"github.com/camden-git/identitybackend/workers"
)

const shutdownTimeout = 15 * time.Second

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}

	exitCode := 0
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		exitCode = 1
	}
	_ = logger.Sync()
	os.Exit(exitCode)
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openContactStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close contact store", zap.Error(err))
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = store.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("contact store unreachable at startup: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.New(ctx, cfg.RedisURL, logger.Named("redis"))
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed to close redis client", zap.Error(err))
			}
		}()
	}

	hub := realtime.NewHub(logger)
	sinks := []workers.EventSink{hub}
	if redisClient != nil {
		sinks = append(sinks, redis.NewEventPublisher(redisClient, cfg.RedisEventsChannel))
		logger.Info("publishing identity events to redis", zap.String("channel", cfg.RedisEventsChannel))
	}
	dispatcher := workers.NewEventDispatcher(sinks, cfg.EventQueueSize, cfg.NumEventWorkers, logger)

	var locker services.KeyLocker = services.NoopKeyLocker{}
	switch cfg.KeyLockMode {
	case config.KeyLockLocal:
		locker = services.NewLocalKeyLocker()
	case config.KeyLockRedis:
		locker = redis.NewLocker(redisClient, "", cfg.KeyLockTTL, cfg.KeyLockWait)
	}
	logger.Info("resolution locking", zap.String("mode", cfg.KeyLockMode))

	identityService, err := services.NewIdentityService(store,
		services.WithLogger(logger.Named("identity")),
		services.WithKeyLocker(locker),
		services.WithEventPublisher(dispatcher),
		services.WithMaxChainHops(cfg.MaxChainHops),
	)
	if err != nil {
		return err
	}

	health := &handlers.HealthHandler{Store: store, Logger: logger}
	if redisClient != nil {
		health.Redis = handlers.PingFunc(redisClient.Health)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Identify:       handlers.NewIdentifyHandler(identityService, logger.Named("http")),
		Health:         health,
		Events:         hub.ServeWS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger.Named("http"),
	})

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", serverAddr), zap.String("db_driver", cfg.DatabaseDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		dispatcher.Stop()
		return err
	})

	return g.Wait()
}

// openContactStore returns the contact store selected by DB_DRIVER and a
// func that releases it.
func openContactStore(cfg config.Config, logger *zap.Logger) (repository.ContactRepositoryInterface, func() error, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory contact store; data is lost on exit")
		return repository.NewInMemoryContactRepository(), func() error { return nil }, nil

	case config.DriverPostgres:
		db, err := database.InitDB(database.DriverPostgres, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database.NewContactStore(db, database.DriverPostgres), db.Close, nil

	default:
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
		gormDB, err := database.InitGormDB(cfg.DatabasePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.AutoMigrateModels(gormDB); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get sql.DB from gorm: %w", err)
		}
		logger.Info("using sqlite contact store", zap.String("path", cfg.DatabasePath))
		return repository.NewContactRepository(gormDB), sqlDB.Close, nil
	}
}
