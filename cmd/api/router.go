package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-ledger-api/internal/handler"
	"github.com/noah-isme/marks-ledger-api/internal/middleware"
	"github.com/noah-isme/marks-ledger-api/internal/service"
	"github.com/noah-isme/marks-ledger-api/pkg/config"
	"github.com/noah-isme/marks-ledger-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/marks-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/marks-ledger-api/pkg/middleware/requestid"
)

// maintenanceRunner accepts on-demand maintenance tasks.
type maintenanceRunner interface {
	Trigger(task string, payload interface{}) bool
}

type routeHandlers struct {
	students *handler.StudentHandler
	uploads  *handler.UploadHandler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, middleware.HeaderCache, middleware.HeaderResponseTime))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metrics))

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/health", h.health.Health)

		api.POST("/upload", h.uploads.Upload)
		api.GET("/uploads", h.uploads.List)
		api.POST("/uploads/reconcile", h.uploads.Reconcile)
		api.GET("/uploads/:id/students", h.uploads.ListStudents)
		api.GET("/uploads/:id/export", h.uploads.Export)
		api.DELETE("/uploads/:id", h.uploads.Delete)

		api.GET("/students", h.students.List)
		api.GET("/students/:id", h.students.Get)
		api.PUT("/students/:id", h.students.Update)
		api.DELETE("/students/:id", h.students.Delete)
	}

	if cfg.Metrics.Enabled && h.metrics != nil {
		r.GET("/metrics", h.metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return r
}
