package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/academoscope/academoscope-api/internal/handler"
	internalmiddleware "github.com/academoscope/academoscope-api/internal/middleware"
	"github.com/academoscope/academoscope-api/internal/repository"
	"github.com/academoscope/academoscope-api/internal/service"
	"github.com/academoscope/academoscope-api/pkg/cache"
	"github.com/academoscope/academoscope-api/pkg/config"
	"github.com/academoscope/academoscope-api/pkg/database"
	"github.com/academoscope/academoscope-api/pkg/logger"
	corsmiddleware "github.com/academoscope/academoscope-api/pkg/middleware/cors"
	reqidmiddleware "github.com/academoscope/academoscope-api/pkg/middleware/requestid"
)

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The engine works without a cache, reads just hit the store.
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr,
		cfg.Analytics.CacheEnabled && redisClient != nil)
	statusSvc := service.NewStatusService(cfg.Status)
	funnelSvc := service.NewFunnelService(courseRepo, lessonRepo, eventRepo, metricsSvc)
	snapshotSvc := service.NewSnapshotService(funnelSvc, courseRepo, lessonRepo, snapshotRepo, metricsSvc, logr, cfg.Aggregator.Interval)
	insightSvc := service.NewInsightService(courseRepo, lessonRepo, studentRepo, eventRepo, snapshotRepo, statusSvc, cacheSvc, logr)
	conflictSvc := service.NewConflictService()
	scheduleSvc := service.NewScheduleService(scheduleRepo, teacherRepo, conflictSvc, insightSvc, logr)
	ingestSvc := service.NewIngestService(courseRepo, lessonRepo, studentRepo, eventRepo, cacheSvc, logr)
	advisorSvc, err := service.NewAdvisorService(ctx, cfg.Advisor, logr)
	if err != nil {
		logr.Fatal("failed to init advisor", zap.Error(err))
	}

	// Handlers.
	analyticsHandler := handler.NewAnalyticsHandler(insightSvc, metricsSvc)
	ingestHandler := handler.NewIngestHandler(ingestSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	advisorHandler := handler.NewAdvisorHandler(advisorSvc, insightSvc, statusSvc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(reqidmiddleware.Middleware())
	router.Use(logger.GinMiddleware(logr))
	router.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	router.Use(internalmiddleware.Metrics(metricsSvc))
	router.Use(internalmiddleware.WithResponseMeta())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", readiness(db.PingContext, redisClient))
	router.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := router.Group(cfg.APIPrefix)
	{
		api.POST("/events", ingestHandler.Ingest)

		api.GET("/summary", analyticsHandler.Summary)
		api.GET("/courses", analyticsHandler.Courses)
		api.GET("/courses/:id", analyticsHandler.CourseByID)
		api.GET("/students", analyticsHandler.Students)
		api.GET("/students/:id", analyticsHandler.StudentByID)
		api.GET("/system", analyticsHandler.System)

		api.GET("/teachers", scheduleHandler.Teachers)
		api.GET("/teachers/:id", scheduleHandler.TeacherByID)
		api.GET("/schedule", scheduleHandler.List)
		api.POST("/schedule", scheduleHandler.Create)
		api.PUT("/schedule/:id", scheduleHandler.Update)
		api.DELETE("/schedule/:id", scheduleHandler.Delete)
		api.GET("/schedule/export", scheduleHandler.Export)

		api.GET("/recommendations", advisorHandler.Recommendations)
		api.POST("/students/:id/insights", advisorHandler.StudentInsights)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		snapshotSvc.Start(ctx)
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	logr.Info("shutdown complete")
}

func readiness(pingDB func(context.Context) error, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := pingDB(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database"})
			return
		}
		status := gin.H{"status": "ready"}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				status["cache"] = "unavailable"
			}
		}
		c.JSON(http.StatusOK, status)
	}
}
