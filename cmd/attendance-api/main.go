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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/qr-attendance-api/api/swagger"
	"github.com/noah-isme/qr-attendance-api/internal/handler"
	"github.com/noah-isme/qr-attendance-api/internal/middleware"
	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	"github.com/noah-isme/qr-attendance-api/pkg/cache"
	"github.com/noah-isme/qr-attendance-api/pkg/config"
	"github.com/noah-isme/qr-attendance-api/pkg/database"
	"github.com/noah-isme/qr-attendance-api/pkg/jobs"
	"github.com/noah-isme/qr-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/qr-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/qr-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/qr-attendance-api/pkg/storage"
)

// @title QR Attendance API
// @version 1.0.0
// @description Classroom attendance through short-lived QR sessions
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var redisClient redis.UniversalClient
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, session cache disabled", zap.Error(err))
	} else {
		redisClient = client
		defer client.Close() //nolint:errcheck
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := buildApp(ctx, cfg, logr, db, redisClient)
	if err != nil {
		return err
	}
	defer app.stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type app struct {
	router *gin.Engine
	queue  *jobs.Queue
}

func (a *app) stop() {
	if a.queue != nil {
		a.queue.Stop()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient redis.UniversalClient) (*app, error) {
	validate := validator.New()
	clock := service.SystemClock{}
	metricsSvc := service.NewMetricsService()
	verifier := service.BcryptVerifier{}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	summaryRepo := repository.NewAttendanceSummaryRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	codec := service.NewSessionTokenCodec(cfg.Sessions.TokenSecret)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, logr, cfg.Sessions.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, enrollmentRepo, verifier, clock, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, verifier, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, userRepo, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, codec, cacheSvc, metricsSvc, clock, logr, service.SessionServiceConfig{
		DefaultDuration: cfg.Sessions.DefaultDuration,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, userRepo, courseRepo, codec, metricsSvc, clock, cfg.Attendance.Location(), validate, logr)
	summarySvc := service.NewSummaryService(summaryRepo, validate, logr)

	if cfg.SeedDemo {
		if err := service.NewSeedService(userRepo, courseRepo, enrollmentRepo, verifier, logr).Seed(ctx); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(cacheRepo.Ping)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	adminHandler := handler.NewAdminHandler(userSvc, courseSvc)
	teacherHandler := handler.NewTeacherHandler(sessionSvc, userSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, summarySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/signup", authHandler.Signup)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	admin := secured.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/students", adminHandler.CreateStudent)
	admin.GET("/students", adminHandler.ListStudents)
	admin.DELETE("/students/:username", adminHandler.DeleteStudent)
	admin.POST("/teachers", adminHandler.CreateTeacher)
	admin.GET("/teachers", adminHandler.ListTeachers)
	admin.DELETE("/teachers/:username", adminHandler.DeleteTeacher)
	admin.POST("/courses", adminHandler.CreateCourse)
	admin.GET("/courses", adminHandler.ListCourses)
	admin.POST("/enrollments", adminHandler.Enroll)
	admin.DELETE("/enrollments", adminHandler.Unenroll)
	admin.GET("/users/:username/courses", adminHandler.UserCourses)

	teacher := secured.Group("/teacher", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	teacher.POST("/generate", teacherHandler.Generate)
	teacher.GET("/current", teacherHandler.Current)
	teacher.POST("/no-class", teacherHandler.NoClass)
	teacher.GET("/sessions", teacherHandler.Sessions)
	teacher.GET("/qr.png", teacherHandler.QRCode)

	limiter := middleware.NewTokenBucket(cfg.Attendance.RateLimitPerMin, cfg.Attendance.RateLimitPerMin)
	go pruneLimiter(ctx, limiter)

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	api.POST("/attendance/scan", middleware.RateLimit(limiter), middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent), attendanceHandler.Scan)
	attendance := secured.Group("/attendance")
	attendance.GET("/today", attendanceHandler.Today)
	attendance.GET("/month", attendanceHandler.Month)
	attendance.GET("/summary", staff, attendanceHandler.Summary)
	attendance.GET("", staff, attendanceHandler.List)

	a := &app{router: r}
	if cfg.Reports.Enabled {
		reportHandler, queue, err := buildReports(ctx, cfg, logr, reportRepo, attendanceRepo, courseRepo, metricsSvc, clock)
		if err != nil {
			return nil, err
		}
		a.queue = queue
		reports := api.Group("/reports")
		reports.GET("/download", reportHandler.DownloadReport)
		reports.POST("/attendance", middleware.JWT(authSvc), staff, reportHandler.GenerateReport)
		reports.GET("/:id", middleware.JWT(authSvc), staff, reportHandler.ReportStatus)
	}

	return a, nil
}

func buildReports(ctx context.Context, cfg *config.Config, logr *zap.Logger, reportRepo *repository.ReportRepository, attendanceRepo *repository.AttendanceRepository, courseRepo *repository.CourseRepository, metricsSvc *service.MetricsService, clock service.Clock) (*handler.ReportHandler, *jobs.Queue, error) {
	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init report storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(attendanceRepo, store, signer, clock, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr)

	worker := service.NewReportWorker(reportRepo, exporter, metricsSvc, clock, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.Config{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		DeadLetter: worker.DeadLetter,
		Logger:     logr,
	})
	queue.Start(context.WithoutCancel(ctx))

	reportSvc := service.NewReportService(reportRepo, courseRepo, queue, exporter, clock, logr, service.ReportServiceConfig{
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	return handler.NewReportHandler(reportSvc, logr), queue, nil
}

func pruneLimiter(ctx context.Context, limiter *middleware.TokenBucket) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(10 * time.Minute)
		}
	}
}
