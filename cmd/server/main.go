package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/logishift/viewrank/internal/api"
	"github.com/logishift/viewrank/internal/api/objects"
	"github.com/logishift/viewrank/internal/cache"
	"github.com/logishift/viewrank/internal/db"
	"github.com/logishift/viewrank/internal/views"
	"github.com/logishift/viewrank/pkg/config"
	"github.com/logishift/viewrank/pkg/logging"
	"github.com/logishift/viewrank/pkg/telemetry"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting view ranking API server")

	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	loc, err := cfg.Site.Location()
	if err != nil {
		logger.Fatal("Invalid site time zone", zap.Error(err))
	}

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	repo := db.NewRepository(database.DB)
	options := db.NewOptionRepository(repo)
	posts := db.NewPostRepository(repo)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	applied, err := views.NewInitializer(database.DB, options).EnsureSchema(startupCtx)
	cancelStartup()
	if err != nil {
		logger.Fatal("Failed to initialize view counter store", zap.Error(err))
	}
	logger.Info("View counter store ready", zap.Bool("migrated", applied), zap.String("version", views.SchemaVersion))

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, ranking cache disabled", zap.Error(err))
		redisCache = nil
	}
	defer redisCache.Close()

	clock := clockwork.NewRealClock()
	ranker := views.NewRanker(database.DB, posts, clock, loc,
		views.WithDefaults(cfg.Popular.DefaultDays, cfg.Popular.DefaultLimit))
	cached := views.NewCachedRanker(ranker, posts, redisCache, cfg.Popular.CacheTTL, clock, loc)
	service := views.NewService(views.NewRecorder(database.DB, clock, loc), cached)

	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := api.NewEngine(&cfg.Server, cfg.Telemetry.ServiceName)
	api.NewRouter(api.Deps{
		Popular:  service,
		Posts:    posts,
		Objects:  objects.NewBuilder(cfg.Site.URL, loc),
		Database: database,
		Cache:    redisCache,
	}, cfg.Server.APIPrefix).SetupRoutes(engine)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Telemetry.Enabled && cfg.Telemetry.PrometheusEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Telemetry.PrometheusPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("Metrics server starting", zap.String("address", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr), zap.String("prefix", cfg.Server.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server forced to shutdown", zap.Error(err))
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
