package router

import (
	"time"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"easypos/internal/config"
	"easypos/internal/handler"
	"easypos/internal/infra"
	"easypos/internal/middleware"
	"easypos/internal/repository"
	"easypos/internal/service"
	"easypos/internal/worker"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	renderer := infra.NewPDFRenderer()
	artifacts := infra.NewFileArtifactStore(cfg.ArtifactStoragePath)

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	closureRepo := repository.NewClosureRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	directory := repository.NewEstablishmentDirectory(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	openingMin, openingMax := cfg.OpeningRange()
	sessionCfg := service.SessionConfig{
		OpeningMin: openingMin,
		OpeningMax: openingMax,
		Thresholds: cfg.Thresholds(),
	}

	authSvc := service.NewAuthService(userRepo, cfg)
	sessionSvc := service.NewSessionService(sessionRepo, registerRepo, sessionCfg)
	closureSvc := service.NewClosureService(sessionRepo, closureRepo, registerRepo, directory, userRepo, renderer, artifacts, dispatcher)
	historySvc := service.NewHistoryService(sessionRepo, closureRepo, sessionCfg.Thresholds)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	closureH := handler.NewClosureHandler(closureSvc)
	historyH := handler.NewHistoryHandler(historySvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: operator, supervisor, admin — declared per-endpoint
		sessions := v1.Group("/sessions")
		{
			sessions.POST("/open", middleware.RequireRole("operator", "supervisor", "admin"), sessionH.Open)
			sessions.POST("/sales", middleware.RequireRole("operator", "supervisor", "admin"), sessionH.RecordSale)
			sessions.POST("/withdrawals", middleware.RequireRole("operator", "supervisor", "admin"), sessionH.RecordWithdrawal)
			sessions.POST("/supplies", middleware.RequireRole("operator", "supervisor", "admin"), sessionH.RecordSupply)
			sessions.POST("/close", middleware.RequireRole("operator", "supervisor", "admin"), sessionH.Close)
			sessions.POST("/transfer", middleware.RequireRole("operator", "supervisor", "admin"), sessionH.Transfer)
			sessions.POST("/receive", middleware.RequireRole("operator", "supervisor", "admin"), sessionH.Receive)
			// Reopening a closed session is a supervised correction path
			sessions.POST("/reopen", middleware.RequireRole("supervisor", "admin"), sessionH.Reopen)
			sessions.GET("/active", middleware.RequireRole("operator", "supervisor", "admin"), sessionH.Active)
			sessions.GET("/:id/report", middleware.RequireRole("operator", "supervisor", "admin"), sessionH.Report)
		}

		closures := v1.Group("/closures")
		{
			closures.GET("/history", middleware.RequireRole("supervisor", "admin"), historyH.List)
			closures.GET("/history/:session_id", middleware.RequireRole("supervisor", "admin"), historyH.Details)
			closures.POST("/:session_id", middleware.RequireRole("operator", "supervisor", "admin"), closureH.Generate)
			closures.GET("/:session_id", middleware.RequireRole("operator", "supervisor", "admin"), closureH.Fetch)
			closures.GET("/:session_id/download", middleware.RequireRole("operator", "supervisor", "admin"), closureH.Download)
			closures.GET("/:session_id/verify", middleware.RequireRole("operator", "supervisor", "admin"), closureH.Verify)
		}
	}

	// Swagger UI — disabled in production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
