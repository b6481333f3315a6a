package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/orgstack/orgdir/internal/apikey"
	"github.com/orgstack/orgdir/internal/config"
	"github.com/orgstack/orgdir/internal/metrics"
	"github.com/orgstack/orgdir/internal/server"
	"github.com/orgstack/orgdir/internal/service"
	"github.com/orgstack/orgdir/internal/store"
	"github.com/orgstack/orgdir/internal/store/migrations"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting organizational directory service",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Int("port", cfg.Server.Port))

	// Initialize metrics
	m := metrics.New()

	// Initialize directory store
	directoryStore, err := buildDirectoryStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize directory store", zap.Error(err))
	}
	defer directoryStore.Close()
	logger.Info("Directory store initialized")

	// Initialize API-key store
	keys, err := buildKeyStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize api key store", zap.Error(err))
	}
	defer keys.Close()
	logger.Info("API key store initialized")

	// Facade registry: one cached facade per tenant, built on first access
	registry := service.NewRegistry(directoryStore, logger, m)

	// HTTP server
	srv := server.NewServer(cfg, registry, directoryStore, keys, m, logger)
	srv.SetupRoutes()

	// Metrics endpoint on its own port
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metricsMux,
		}
		go func() {
			logger.Info("Starting metrics server", zap.Int("port", cfg.Metrics.Port))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
}

// buildLogger creates a zap logger honoring the configured level and format.
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// buildDirectoryStore constructs the configured backing store adapter,
// applying schema migrations when the Postgres adapter is selected.
func buildDirectoryStore(cfg *config.Config, logger *zap.Logger) (store.DirectoryStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return store.NewMemoryStore(logger), nil
	case "postgres":
		pg, err := store.NewPostgresStore(
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Database,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.MaxConnections,
			cfg.Database.MinConnections,
			logger,
		)
		if err != nil {
			return nil, err
		}

		if cfg.Storage.Migrate {
			if err := migrations.RunUp(context.Background(), pg.GetPool(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// buildKeyStore constructs the configured API-key store wrapped in a local
// TTL cache.
func buildKeyStore(cfg *config.Config, logger *zap.Logger) (apikey.Store, error) {
	var backing apikey.Store
	switch cfg.Auth.Backend {
	case "memory":
		backing = apikey.NewMemoryStore()
	case "redis":
		redisStore, err := apikey.NewRedisStore(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			logger,
		)
		if err != nil {
			return nil, err
		}
		backing = redisStore
	default:
		return nil, fmt.Errorf("unknown auth backend %q", cfg.Auth.Backend)
	}

	return apikey.NewCachedStore(backing, cfg.Auth.KeyCacheTTL, cfg.Auth.KeyCacheSize), nil
}
