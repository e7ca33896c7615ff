package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/uni-ombuds/case-api/api/swagger"
	"github.com/uni-ombuds/case-api/internal/handler"
	"github.com/uni-ombuds/case-api/internal/middleware"
	"github.com/uni-ombuds/case-api/internal/models"
	"github.com/uni-ombuds/case-api/internal/repository"
	"github.com/uni-ombuds/case-api/internal/service"
	"github.com/uni-ombuds/case-api/pkg/cache"
	"github.com/uni-ombuds/case-api/pkg/config"
	"github.com/uni-ombuds/case-api/pkg/database"
	"github.com/uni-ombuds/case-api/pkg/export"
	"github.com/uni-ombuds/case-api/pkg/jobs"
	"github.com/uni-ombuds/case-api/pkg/logger"
	corsmiddleware "github.com/uni-ombuds/case-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uni-ombuds/case-api/pkg/middleware/requestid"
	"github.com/uni-ombuds/case-api/pkg/storage"
)

// @title Ombudsperson Case API
// @version 1.0.0
// @description Case lifecycle and audit-trail service for the university ombudsperson office
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	files, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	var lookupCache *repository.CacheRepository
	if cfg.Lookup.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, lookup cache disabled", "error", err)
		} else {
			lookupCache = repository.NewCacheRepository(redisClient, logr)
			defer lookupCache.Close() //nolint:errcheck
		}
	}

	validate := validator.New()

	caseRepo := repository.NewCaseRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	userRepo := repository.NewUserRepository(db)

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	notifications := service.NewNotificationService(service.LogSender{Logger: logr}, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		Logger:     logr,
	}, logr)

	codeGen := service.NewCodeGenerator(sequenceRepo, logr)
	evidenceSvc := service.NewEvidenceService(attachmentRepo, files, signer, logr, metricsSvc)
	lookupSvc := service.NewLookupService(caseRepo, auditRepo, lookupCache, service.LookupConfig{
		CacheEnabled: cfg.Lookup.CacheEnabled && lookupCache != nil,
		CacheTTL:     cfg.Lookup.CacheTTL,
	}, logr, metricsSvc)
	registrySvc := service.NewRegistryService(caseRepo, codeGen, notifications, validate, logr, metricsSvc)
	lifecycleSvc := service.NewLifecycleService(caseRepo, lookupSvc, logr, metricsSvc)
	assignmentSvc := service.NewAssignmentService(caseRepo, userRepo, lookupSvc, validate, logr)
	auditSvc := service.NewAuditService(auditRepo, caseRepo, evidenceSvc, lookupSvc, validate, logr)
	recordSvc := service.NewRecordService(registrySvc, auditSvc, evidenceSvc, export.NewPDFExporter(), logr)
	userSvc := service.NewUserService(userRepo, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	caseHandler := handler.NewCaseHandler(registrySvc, lifecycleSvc, assignmentSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	attachmentHandler := handler.NewAttachmentHandler(registrySvc, evidenceSvc, recordSvc, signer, files)
	lookupHandler := handler.NewLookupHandler(lookupSvc)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/public/tracking/:code", lookupHandler.Track)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/attachments/download/:token", attachmentHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	cases := authed.Group("/cases")
	cases.POST("", caseHandler.Create)
	cases.GET("", caseHandler.List)
	cases.GET("/:id", caseHandler.Get)
	cases.POST("/:id/transition", middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), caseHandler.Transition)
	cases.POST("/:id/priority", middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), caseHandler.SetPriority)
	cases.POST("/:id/assign", middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), caseHandler.Assign)
	cases.DELETE("/:id", middleware.RequireRoles(models.RoleSupervisor), caseHandler.Delete)
	cases.GET("/:id/entries", auditHandler.List)
	cases.POST("/:id/entries", auditHandler.Append)
	cases.GET("/:id/entries/export", auditHandler.ExportCSV)
	cases.GET("/:id/attachments", attachmentHandler.List)
	cases.POST("/:id/attachments", attachmentHandler.Upload)
	cases.POST("/:id/record", middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), attachmentHandler.GenerateRecord)

	authed.GET("/attachments/:attachmentId/url", attachmentHandler.SignedURL)

	users := authed.Group("/users")
	users.GET("", middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), userHandler.List)
	users.GET("/handlers", userHandler.EligibleHandlers)
	users.GET("/:id", middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), userHandler.Get)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Notifications.Enabled {
		notifications.Start(ctx)
		defer notifications.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
