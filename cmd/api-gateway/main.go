package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/resit-exam-api/api/swagger"
	"github.com/noah-isme/resit-exam-api/internal/handler"
	"github.com/noah-isme/resit-exam-api/internal/middleware"
	"github.com/noah-isme/resit-exam-api/internal/repository"
	"github.com/noah-isme/resit-exam-api/internal/service"
	"github.com/noah-isme/resit-exam-api/pkg/config"
	"github.com/noah-isme/resit-exam-api/pkg/database"
	"github.com/noah-isme/resit-exam-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/resit-exam-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/resit-exam-api/pkg/middleware/requestid"
	"github.com/noah-isme/resit-exam-api/pkg/observability"
	"github.com/noah-isme/resit-exam-api/pkg/storage"
	"github.com/noah-isme/resit-exam-api/pkg/validation"
)

// Uploads older than this are leftovers of interrupted requests.
const staleUploadAge = time.Hour

// @title Resit Exam API
// @version 1.0.0
// @description Grade ingestion, resit eligibility, registration, scheduling and notifications.
// @BasePath /api/v1
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

	flushSentry, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Sentry.Release)
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flushSentry()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB, "up"); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Fatal("failed to prepare uploads directory", zap.Error(err))
	}
	if removed, err := uploads.CleanupOlderThan(staleUploadAge); err != nil {
		logr.Warn("stale upload sweep failed", zap.Error(err))
	} else if len(removed) > 0 {
		logr.Info("removed stale uploads", zap.Int("count", len(removed)))
	}

	validate := validation.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	grades := repository.NewGradeRepository(db)
	exams := repository.NewResitExamRepository(db)
	registrations := repository.NewResitRegistrationRepository(db)
	notifications := repository.NewNotificationRepository(db)

	authService := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	gradeService := service.NewGradeIngestionService(users, courses, grades, exams, registrations, db, uploads, metrics, validate, logr)
	resitService := service.NewResitService(courses, grades, exams, registrations, notifications, db, metrics, validate, logr)
	scheduleService := service.NewResitScheduleService(courses, exams, registrations, notifications, db, uploads, metrics, validate, logr)
	notificationService := service.NewNotificationService(users, courses, exams, registrations, notifications, db, metrics, validate, logr)
	dashboardService := service.NewDashboardService(service.DashboardServiceParams{
		Courses:       courses,
		Grades:        grades,
		Exams:         exams,
		Registrations: registrations,
		Logger:        logr,
	})
	exportService := service.NewExportService(resitService, logr, nil, nil)
	courseService := service.NewCourseService(courses, logr)

	policy := handler.UploadPolicy{
		MaxBytes:          cfg.Uploads.MaxFileSizeBytes,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(observability.GinMiddleware())
	r.Use(corsmiddleware.New(corsmiddleware.Policy{
		Origins:        cfg.CORS.AllowedOrigins,
		AllowedHeaders: []string{"Authorization", "Content-Type", reqidmiddleware.Header},
		ExposedHeaders: []string{"Content-Disposition", reqidmiddleware.Header},
		MaxAge:         10 * time.Minute,
	}, r.Routes))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metrics))
	}

	handler.SetupRoutes(r, cfg.APIPrefix, authService, handler.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Courses:       handler.NewCourseHandler(courseService),
		Grades:        handler.NewGradeHandler(gradeService, uploads, policy),
		Resits:        handler.NewResitHandler(resitService, exportService),
		Schedule:      handler.NewScheduleHandler(scheduleService, uploads, policy),
		Notifications: handler.NewNotificationHandler(notificationService),
		Dashboard:     handler.NewDashboardHandler(dashboardService),
		Metrics:       handler.NewMetricsHandler(metrics, db),
	}, cfg.Metrics.Enabled)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
