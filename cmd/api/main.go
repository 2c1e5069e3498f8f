package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/edupulse/edupulse-api/api/swagger"
	"github.com/edupulse/edupulse-api/internal/handler"
	"github.com/edupulse/edupulse-api/internal/middleware"
	"github.com/edupulse/edupulse-api/internal/models"
	"github.com/edupulse/edupulse-api/internal/repository"
	"github.com/edupulse/edupulse-api/internal/service"
	"github.com/edupulse/edupulse-api/pkg/cache"
	"github.com/edupulse/edupulse-api/pkg/config"
	"github.com/edupulse/edupulse-api/pkg/database"
	"github.com/edupulse/edupulse-api/pkg/logger"
	corsmiddleware "github.com/edupulse/edupulse-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edupulse/edupulse-api/pkg/middleware/requestid"
)

// @title EduPulse API
// @version 1.0.0
// @description School records API: attendance, assessments, grades and gradebook aggregation
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The gradebook cache is an optimization; the API stays up without it.
		logr.Warn("redis unavailable, gradebook caching disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Gradebook.CacheTTL, logr, cfg.Gradebook.CacheEnabled)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Gradebook.CacheTTL, logr, false)
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, courseRepo, cacheSvc, nil, logr)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, courseRepo, cacheSvc, nil, logr)
	gradeSvc := service.NewGradeService(gradeRepo, assessmentRepo, cacheSvc, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, cacheSvc, nil, logr)
	gradebookSvc := service.NewGradebookService(courseRepo, assessmentRepo, enrollmentRepo, gradeRepo, attendanceSvc, cacheSvc, metricsSvc, nil, logr, cfg.Gradebook.DefaultQuizPolicy)
	exportSvc := service.NewExportService(gradebookSvc, service.ExportConfig{
		Enabled: cfg.Exports.Enabled,
		Title:   cfg.Exports.Title,
	}, logr, nil, nil)

	authHandler := handler.NewAuthHandler(authSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	assessmentHandler := handler.NewAssessmentHandler(assessmentSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	gradebookHandler := handler.NewGradebookHandler(gradebookSvc, exportSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)

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
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
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

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	teacherOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	courses := authed.Group("/courses/:id")
	courses.GET("/attendance", teacherOnly, attendanceHandler.History)
	courses.POST("/attendance", teacherOnly, attendanceHandler.Mark)
	courses.GET("/attendance/day", teacherOnly, attendanceHandler.ByDate)
	courses.DELETE("/attendance/day", teacherOnly, attendanceHandler.DeleteDay)
	courses.GET("/attendance/summary/:studentId", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), "SELF"), attendanceHandler.Summary)

	courses.GET("/assessments", assessmentHandler.List)
	courses.POST("/assessments", teacherOnly, assessmentHandler.Create)

	courses.GET("/gradebook", teacherOnly, gradebookHandler.Teacher)
	courses.GET("/gradebook/me", middleware.RequireRoles(models.RoleStudent), gradebookHandler.Student)
	courses.PUT("/gradebook/policy", teacherOnly, gradebookHandler.SetPolicy)
	courses.GET("/gradebook/export", teacherOnly, gradebookHandler.Export)

	courses.GET("/enrollments", teacherOnly, enrollmentHandler.Roster)
	courses.POST("/enrollments", teacherOnly, enrollmentHandler.Enroll)

	authed.DELETE("/assessments/:id", teacherOnly, assessmentHandler.Delete)
	authed.POST("/grades", teacherOnly, gradeHandler.Upsert)
	authed.POST("/grades/bulk", teacherOnly, gradeHandler.Bulk)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
