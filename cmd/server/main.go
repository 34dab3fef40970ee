package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"github.com/joho/godotenv"

	"shorts-server/internal/ai"
	"shorts-server/internal/config"
	"shorts-server/internal/database"
	"shorts-server/internal/handler"
	"shorts-server/internal/logger"
	"shorts-server/internal/messaging"
	"shorts-server/internal/middleware"
	"shorts-server/internal/repository"
	"shorts-server/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// .env опционален: в контейнере переменные приходят из окружения.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create logger")
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Хранилища ---
	pool, err := database.NewPostgresPool(ctx, cfg.GetDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// --- Messaging ---
	var publisher messaging.StoryEventPublisher
	if cfg.RabbitMQDisabled {
		publisher = messaging.NewNoopPublisher(zapLogger)
	} else {
		rabbitConn, rabbitChannel, err := database.NewRabbitMQChannel(cfg.RabbitMQURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer rabbitConn.Close()
		defer rabbitChannel.Close()

		publisher, err = messaging.NewRabbitMQPublisher(rabbitChannel, cfg.StoryEventsQueue, zapLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create RabbitMQ publisher")
		}
	}

	// --- Зависимости ---
	storyRepo := repository.NewPgStoryRepository(pool, zapLogger)
	summaryRepo := repository.NewPgSummaryRepository(pool, zapLogger)
	storyLocker := repository.NewRedisStoryLocker(redisClient, zapLogger)

	aiClient := ai.NewClient(ai.Config{
		APIKey:         cfg.AIAPIKey,
		BaseURL:        cfg.AIBaseURL,
		Model:          cfg.AIModel,
		Timeout:        cfg.AITimeout,
		MaxAttempts:    cfg.AIMaxAttempts,
		BaseRetryDelay: cfg.AIBaseRetryDelay,
	}, zapLogger)

	storyService := service.NewStoryService(aiClient, storyRepo, summaryRepo, storyLocker, publisher, zapLogger)
	storyHandler := handler.NewStoryHandler(storyService, zapLogger)

	jwtVerifier, err := middleware.NewJWTVerifier(cfg.JWTSecret, zapLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create JWT verifier")
	}

	// --- HTTP ---
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(zapLogger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	prom := ginprometheus.NewPrometheus("shorts_server")
	prom.Use(engine)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	api.Use(middleware.Auth(jwtVerifier, zapLogger))
	storyHandler.RegisterRoutes(api)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	zapLogger.Info("Server stopped gracefully")
}
