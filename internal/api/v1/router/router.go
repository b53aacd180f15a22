package router

import (
	"context"
	"net/http"
	"strings"

	"app/internal/api/v1/handler"
	"app/internal/cache"
	"app/internal/config"
	"app/internal/media"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"
	"app/pkg/executor"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection (connection pooling)
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled
	// for local testing. In production, the connection string should be
	// provided with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize Redis client for the transcript cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Msgf("Failed to ping Redis: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Redis connection successful")

	// 3. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to load S3 config: %v", err)
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 4. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. Initialize repositories & services & handlers
	creditsRepo := repository.NewCreditsRepo(pool)
	purchaseRepo := repository.NewPurchaseRepo(pool)
	recordingRepo := repository.NewRecordingRepo(pool)
	userRepo := repository.NewUserRepo(pool)

	transcriptCache := cache.NewRedisCache(redisClient)
	processor := media.NewProcessor(executor.New(), cfg.TempDir, logger)
	transcriber := service.NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.WhisperModel, cfg.WhisperLanguage, logger)
	summarizer := service.NewGroqSummarizer(cfg.GroqAPIKey, cfg.GroqModel, logger)

	storageSvc := service.NewStorageService(s3Client, cfg.S3Bucket, logger)
	creditsSvc := service.NewCreditsService(creditsRepo, purchaseRepo, logger)
	purchaseSvc := service.NewPurchaseService(purchaseRepo, creditsRepo, userRepo, storageSvc, logger)
	processingSvc := service.NewProcessingService(
		processor, transcriber, summarizer, transcriptCache,
		creditsSvc, recordingRepo, cfg.MaxFileSizeBytes(), logger,
	)

	healthHandler := handler.NewHealthHandler(cfg, processor, logger)
	processHandler := handler.NewProcessHandler(processingSvc, validate, logger)
	creditsHandler := handler.NewCreditsHandler(creditsSvc, purchaseSvc, recordingRepo, logger)
	adminHandler := handler.NewAdminHandler(purchaseSvc, creditsSvc, storageSvc, logger)

	// 6. Initialize middleware. User auth is optional: without a JWT
	// secret, handlers identify users by the user_id query parameter.
	userMw := passthrough
	if cfg.JWTSecret != "" {
		userMw = middleware.AuthMiddleware(cfg.JWTSecret)
	}
	adminMw := middleware.AdminMiddleware(cfg.AdminKey)

	// 7. Create ServeMux router
	mux := http.NewServeMux()
	healthHandler.RegisterRoutes(mux)
	processHandler.RegisterRoutes(mux, userMw)
	creditsHandler.RegisterRoutes(mux, userMw)
	adminHandler.RegisterRoutes(mux, adminMw)

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists.
		// This makes the client more robust, especially for operations like presigned URLs
		// that might inspect the middleware stack.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
