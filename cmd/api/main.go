package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/marks-ledger-api/api/swagger"
	"github.com/noah-isme/marks-ledger-api/internal/handler"
	"github.com/noah-isme/marks-ledger-api/internal/repository"
	"github.com/noah-isme/marks-ledger-api/internal/service"
	"github.com/noah-isme/marks-ledger-api/pkg/cache"
	"github.com/noah-isme/marks-ledger-api/pkg/config"
	"github.com/noah-isme/marks-ledger-api/pkg/database"
	"github.com/noah-isme/marks-ledger-api/pkg/logger"
	"github.com/noah-isme/marks-ledger-api/pkg/storage"
)

// @title Marks Ledger API
// @version 1.0.0
// @description Spreadsheet ingestion and student marks management
// @BasePath /api
// @schemes http

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck
	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Fatal("failed to apply schema", zap.Error(err))
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, "marks")
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
		}
	}

	staging, err := storage.NewLocalStorage(cfg.Uploads.StagingDir)
	if err != nil {
		logr.Fatal("failed to prepare staging directory", zap.Error(err))
	}

	var observer repository.QueryObserver
	if metrics != nil {
		observer = metrics
	}
	uploadRepo := repository.NewUploadRepository(db, observer)
	recordRepo := repository.NewStudentRecordRepository(db, observer)

	maintenance := service.NewMaintenanceService(uploadRepo, staging, cacheSvc, metrics, logr, service.MaintenanceConfig{
		Workers:           cfg.Reconcile.Workers,
		ReconcileInterval: cfg.Reconcile.Interval,
		StagingTTL:        cfg.Uploads.StagingTTL,
	})
	var repairs maintenanceRunner
	if cfg.Reconcile.Enabled {
		maintenance.Start(ctx)
		defer maintenance.Stop()
		repairs = maintenance
	}

	validate := validator.New()
	handlers := routeHandlers{
		students: handler.NewStudentHandler(service.NewStudentService(recordRepo, uploadRepo, repairs, cacheSvc, validate, logr)),
		uploads: handler.NewUploadHandler(
			service.NewUploadService(uploadRepo, recordRepo, cacheSvc, cfg.Cache.TTL, logr),
			service.NewIngestService(uploadRepo, recordRepo, staging, repairs, cacheSvc, metrics, logr),
			service.NewExportService(uploadRepo, recordRepo, logr),
			repairs,
			cfg.Uploads.MaxFileSizeBytes,
		),
		health: handler.NewHealthHandler(service.NewHealthService(uploadRepo, recordRepo, logr)),
	}
	if metrics != nil {
		handlers.metrics = handler.NewMetricsHandler(metrics)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, metrics, handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
