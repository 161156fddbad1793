package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/macrotrack/backend/config"
	"github.com/pageza/macrotrack/backend/internal/api"
	"github.com/pageza/macrotrack/backend/internal/crypto"
	"github.com/pageza/macrotrack/backend/internal/database"
	"github.com/pageza/macrotrack/backend/internal/logging"
	"github.com/pageza/macrotrack/backend/internal/middleware"
	"github.com/pageza/macrotrack/backend/internal/nutrition"
	"github.com/pageza/macrotrack/backend/internal/router"
	"github.com/pageza/macrotrack/backend/internal/server"
	"github.com/pageza/macrotrack/backend/internal/service"
	"github.com/pageza/macrotrack/backend/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(string(cfg.Environment), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.Open(cfg, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, db, logger); err != nil {
		return err
	}

	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		return err
	}
	encryptor, err := crypto.NewEncryptor(key)
	if err != nil {
		return err
	}

	limiterConfig := middleware.RateLimitConfig{
		Window:    cfg.RateLimitWindow,
		Limit:     cfg.RateLimitRequests,
		KeyPrefix: "rate_limit:inference",
	}
	var limiter middleware.RateLimiter
	redisClient, err := database.NewRedisClient(ctx, cfg, logger)
	if err != nil {
		// Single-node deployments run without Redis
		logger.Warn("redis unavailable, using in-process rate limiter", zap.Error(err))
		limiter = middleware.NewMemoryRateLimiter(limiterConfig)
	} else {
		defer redisClient.Close()
		limiter = middleware.NewRedisRateLimiter(redisClient, limiterConfig)
	}

	var photos storage.PhotoStore
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3PhotoStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		photos = s3Store
	} else {
		logger.Info("S3_BUCKET_NAME not set, profile photos disabled")
	}

	client := nutrition.NewClient(nutrition.ClientConfig{
		URL:     cfg.OpenAIURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.InferenceTimeout,
	}, logger)
	pipeline := nutrition.NewPipeline(client, logger)

	// Initialize services
	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.JWTTTL)
	profileService := service.NewProfileService(db, encryptor, photos, logger)
	goalService := service.NewGoalService(db, pipeline, profileService, encryptor, logger)
	mealService := service.NewMealService(db, pipeline, profileService, goalService, logger)
	insightService := service.NewInsightService(db, mealService, goalService, pipeline, profileService, logger)
	frequentMealService := service.NewFrequentMealService(db, pipeline, profileService, logger)

	handler := router.SetupRouter(router.Handlers{
		Auth:          api.NewAuthHandler(authService, logger),
		Profile:       api.NewProfileHandler(profileService, logger),
		Meals:         api.NewMealHandler(mealService, insightService, logger),
		Goals:         api.NewGoalHandler(goalService, logger),
		FrequentMeals: api.NewFrequentMealHandler(frequentMealService, logger),
		Health:        api.NewHealthHandler(db, logger),
	}, router.Options{
		Tokens:         authService,
		Users:          profileService,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	return server.New(cfg, handler, logger).Run(ctx)
}
