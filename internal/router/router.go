package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"retro-board-api/internal/cache"
	"retro-board-api/internal/config"
	"retro-board-api/internal/handler"
	"retro-board-api/internal/job"
	"retro-board-api/internal/metrics"
	"retro-board-api/internal/middleware"
	"retro-board-api/internal/repository"
	"retro-board-api/internal/service"
	"retro-board-api/internal/timer"
)

// Setup wires repositories, services, the websocket hub and the HTTP
// routes. The returned cleanup job is scheduled by the caller.
func Setup(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, m *metrics.Metrics, logger *zap.Logger) (*gin.Engine, *job.CleanupJob) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(m))

	// Initialize repositories
	boardRepo := repository.NewBoardRepository(db)
	columnRepo := repository.NewColumnRepository(db)
	userRepo := repository.NewUserRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// Initialize websocket hub, snapshot cache and timer scheduler
	hub := handler.NewHub(redisClient, m, logger)
	snapshotCache := cache.New()
	scheduler := timer.NewScheduler()

	// Initialize services
	boardState := service.NewBoardStateService(snapshotCache, boardRepo, columnRepo, commentRepo, userRepo, m, logger)
	boardService := service.NewBoardService(boardRepo, columnRepo, userRepo, commentRepo, boardState, hub, scheduler, cfg.Board.CreateKey, m, logger)
	sessionService := service.NewSessionService(boardRepo, userRepo, commentRepo, boardState, hub, logger)
	commentService := service.NewCommentService(boardRepo, columnRepo, userRepo, commentRepo, boardState, hub, m, logger)
	timerService := service.NewTimerService(boardRepo, userRepo, boardState, hub, scheduler, logger)

	// Initialize handlers
	boardHandler := handler.NewBoardHandler(boardService, logger)
	wsHandler := handler.NewWSHandler(hub, sessionService, commentService, boardService, timerService, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Health and metrics endpoints
	r.GET("/health", healthHandler.Healthz)
	r.GET("/ready", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	// Websocket endpoint
	r.GET("/ws", wsHandler.HandleWebSocket)

	// REST API
	api := r.Group("/api")
	{
		api.POST("/boards", boardHandler.CreateBoard)
		api.GET("/boards/:boardId", boardHandler.GetBoard)
		api.GET("/boards/:boardId/export", boardHandler.ExportBoard)
	}

	cleanupJob := job.NewCleanupJob(
		boardRepo,
		columnRepo,
		userRepo,
		commentRepo,
		boardState,
		scheduler,
		m,
		logger,
		time.Duration(cfg.Board.MaxAgeHours)*time.Hour,
	)

	return r, cleanupJob
}
