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

	_ "github.com/openadmit/admissions-api/api/swagger"
	"github.com/openadmit/admissions-api/internal/handler"
	"github.com/openadmit/admissions-api/internal/middleware"
	"github.com/openadmit/admissions-api/internal/models"
	"github.com/openadmit/admissions-api/internal/repository"
	"github.com/openadmit/admissions-api/internal/service"
	"github.com/openadmit/admissions-api/pkg/cache"
	"github.com/openadmit/admissions-api/pkg/config"
	"github.com/openadmit/admissions-api/pkg/database"
	"github.com/openadmit/admissions-api/pkg/jobs"
	"github.com/openadmit/admissions-api/pkg/logger"
	corsmiddleware "github.com/openadmit/admissions-api/pkg/middleware/cors"
	reqidmiddleware "github.com/openadmit/admissions-api/pkg/middleware/requestid"
)

// @title Admissions CRM API
// @version 1.0.0
// @description Enrollment pipeline for private school admissions
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, funnel cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	leadRepo := repository.NewLeadRepository(db)
	conversionRepo := repository.NewConversionRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	householdRepo := repository.NewHouseholdRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil && cfg.Funnel.Enabled {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}

	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(service.NewLogSender(logr), jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	var funnelSvc *service.FunnelService
	if cacheRepo != nil {
		funnelSvc = service.NewFunnelService(leadRepo, applicationRepo, cacheRepo, cfg.Funnel.CacheTTL, logr)
	} else {
		funnelSvc = service.NewFunnelService(leadRepo, applicationRepo, nil, cfg.Funnel.CacheTTL, logr)
	}

	events := service.NewEventFanout(notificationSvc, metricsSvc, funnelSvc)

	authSvc := service.NewAuthService(userRepo, auditRepo, cfg.JWT, validate, logr)
	leadSvc := service.NewLeadService(leadRepo, events, auditRepo, validate, logr)
	conversionSvc := service.NewConversionService(conversionRepo, events, auditRepo, validate, logr, cfg.Admissions.PlaceholderStudentName)
	applicationSvc := service.NewApplicationService(applicationRepo, studentRepo, events, auditRepo, validate, logr)
	householdSvc := service.NewHouseholdService(householdRepo, studentRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	exportSvc := service.NewExportService(applicationRepo, cfg.Exports.Letterhead, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	leadHandler := handler.NewLeadHandler(leadSvc, conversionSvc)
	applicationHandler := handler.NewApplicationHandler(applicationSvc)
	householdHandler := handler.NewHouseholdHandler(householdSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	funnelHandler := handler.NewFunnelHandler(funnelSvc, cfg.Admissions.DefaultSchoolYear)
	exportHandler := handler.NewExportHandler(exportSvc, cfg.Admissions.DefaultSchoolYear)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.GET("/auth/me", authHandler.Me)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleAdmissions, models.RoleStaff)
	admissions := middleware.RequireRoles(models.RoleAdmin, models.RoleAdmissions)

	leads := protected.Group("/leads")
	leads.GET("", staff, leadHandler.List)
	leads.GET("/:id", staff, leadHandler.Get)
	leads.POST("", staff, leadHandler.Create)
	leads.POST("/:id/schedule-tour", staff, leadHandler.ScheduleTour)
	leads.POST("/:id/complete-tour", staff, leadHandler.CompleteTour)
	leads.PATCH("/:id/stage", admissions, leadHandler.AdvanceStage)
	leads.POST("/:id/mark-lost", admissions, leadHandler.MarkLost)
	leads.POST("/:id/convert", admissions, leadHandler.Convert)

	applications := protected.Group("/applications")
	applications.GET("", staff, applicationHandler.List)
	applications.GET("/:id", staff, applicationHandler.Get)
	applications.POST("", staff, applicationHandler.Create)
	applications.POST("/:id/submit", staff, applicationHandler.Submit)
	applications.POST("/:id/start-review", admissions, applicationHandler.StartReview)
	applications.POST("/:id/schedule-interview", admissions, applicationHandler.ScheduleInterview)
	applications.POST("/:id/complete-interview", admissions, applicationHandler.CompleteInterview)
	applications.POST("/:id/decide", admissions, applicationHandler.Decide)
	applications.POST("/:id/enroll", admissions, applicationHandler.Enroll)
	applications.POST("/:id/withdraw", staff, applicationHandler.Withdraw)
	applications.POST("/:id/fee-paid", staff, applicationHandler.MarkFeePaid)

	households := protected.Group("/households")
	households.GET("", staff, householdHandler.List)
	households.GET("/:id", staff, householdHandler.Get)
	households.POST("/:id/guardians", staff, householdHandler.AddGuardian)
	households.PUT("/:id/guardians/:guardianId/primary", staff, householdHandler.SetPrimaryGuardian)
	households.POST("/:id/students", staff, householdHandler.AttachStudent)

	students := protected.Group("/students")
	students.GET("", staff, studentHandler.List)
	students.GET("/:id", staff, studentHandler.Get)
	students.PUT("/:id", staff, studentHandler.Update)

	protected.GET("/funnel", staff, funnelHandler.Summary)

	if cfg.Exports.Enabled {
		exports := protected.Group("/exports")
		exports.Use(middleware.Audit(auditRepo, models.AuditActionExport, "exports"))
		exports.GET("/applications", admissions, exportHandler.ApplicationRoster)
		exports.GET("/applications/:id/decision-letter", admissions, exportHandler.DecisionLetter)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
