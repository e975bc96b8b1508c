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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/groove-academy/groove-api/api/swagger"
	"github.com/groove-academy/groove-api/internal/handler"
	"github.com/groove-academy/groove-api/internal/middleware"
	"github.com/groove-academy/groove-api/internal/models"
	"github.com/groove-academy/groove-api/internal/repository"
	"github.com/groove-academy/groove-api/internal/service"
	"github.com/groove-academy/groove-api/pkg/auth"
	"github.com/groove-academy/groove-api/pkg/cache"
	"github.com/groove-academy/groove-api/pkg/config"
	"github.com/groove-academy/groove-api/pkg/database"
	"github.com/groove-academy/groove-api/pkg/jobs"
	"github.com/groove-academy/groove-api/pkg/logger"
	corsmiddleware "github.com/groove-academy/groove-api/pkg/middleware/cors"
	reqidmiddleware "github.com/groove-academy/groove-api/pkg/middleware/requestid"
)

// @title Groove Academy API
// @version 1.0.0
// @description Scheduling and substitution backend for a music school
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
		logr.Sugar().Warnw("redis unavailable, timetable caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	verifier := auth.NewVerifier(cfg.JWT)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	replacementRepo := repository.NewReplacementRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, userRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, courseRepo, validate, logr)
	replacementSvc := service.NewReplacementService(replacementRepo, userRepo, courseRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, userRepo, validate, logr)
	timetableSvc := service.NewTimetableService(availabilityRepo, scheduleRepo, courseRepo, userRepo, cacheRepo, service.TimetableOptions{
		CacheEnabled: cfg.Timetable.CacheEnabled,
		CacheTTL:     cfg.Timetable.CacheTTL,
	}, logr)

	invalidationQueue := jobs.NewQueue("timetable-invalidation", timetableSvc.HandleInvalidation, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	queueCtx, queueCancel := context.WithCancel(context.Background())
	defer queueCancel()
	invalidationQueue.Start(queueCtx)
	defer invalidationQueue.Stop()

	timetableSvc.SetQueue(invalidationQueue)
	timetableSvc.SetMetrics(metricsSvc)
	availabilitySvc.SetInvalidator(timetableSvc)
	scheduleSvc.SetInvalidator(timetableSvc)
	scheduleSvc.SetMetrics(metricsSvc)
	replacementSvc.SetInvalidator(timetableSvc)
	replacementSvc.SetMetrics(metricsSvc)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	replacementHandler := handler.NewReplacementHandler(replacementSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Options{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(verifier))

	teachersAndAdmins := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	adminsOnly := middleware.RequireRoles(models.RoleAdmin)

	availability := api.Group("/availability")
	{
		availability.POST("", teachersAndAdmins, availabilityHandler.Create)
		availability.GET("/me", teachersAndAdmins, availabilityHandler.ListMine)
		availability.PUT("/:id", teachersAndAdmins, availabilityHandler.Update)
		availability.DELETE("/:id", teachersAndAdmins, availabilityHandler.Delete)
	}

	courses := api.Group("/courses")
	{
		courses.GET("/:courseId/schedules", scheduleHandler.ListByCourse)
		courses.POST("/:courseId/schedules", teachersAndAdmins, scheduleHandler.Create)
		courses.GET("/:courseId/enrollments", teachersAndAdmins, enrollmentHandler.ListByCourse)
	}

	api.DELETE("/schedules/:id", teachersAndAdmins, scheduleHandler.Delete)

	replacements := api.Group("/replacements")
	{
		replacements.GET("", adminsOnly, replacementHandler.List)
		replacements.POST("", adminsOnly, replacementHandler.Create)
		replacements.PATCH("/:id/status", teachersAndAdmins, replacementHandler.UpdateStatus)
		replacements.DELETE("/:id", adminsOnly, replacementHandler.Delete)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.POST("", enrollmentHandler.Create)
		enrollments.DELETE("/:id", enrollmentHandler.Delete)
	}

	teachers := api.Group("/teachers")
	{
		teachers.GET("/:teacherId/availability", availabilityHandler.ListByTeacher)
		teachers.GET("/:teacherId/schedules", scheduleHandler.ListByTeacher)
		teachers.GET("/:teacherId/replacements", middleware.RBAC("ADMIN", "SELF"), replacementHandler.ListByTeacher)
		teachers.GET("/:teacherId/timetable", timetableHandler.Get)
		teachers.GET("/:teacherId/timetable/export/csv", timetableHandler.ExportCSV)
		teachers.GET("/:teacherId/timetable/export/pdf", timetableHandler.ExportPDF)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
