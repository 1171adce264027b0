package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/quota"
	"app/internal/repository"
	"app/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, *quota.Meter, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// Open DB connection pool
	dsn := cfg.DBConnectionString
	// In a development environment, ensure SSL is disabled for local testing.
	// In production, the connection string carries the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection pool: %v", err)
		return nil, nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
		return nil, nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to load S3 config: %v", err)
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Initialize Pub/Sub publisher
	pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
		return nil, nil, nil, err
	}

	// Resolve the coach model API key: environment first, Secret Manager as
	// the production path.
	apiKey := cfg.OpenAIAPIKey
	if apiKey == "" && cfg.OpenAIAPIKeySecret != "" {
		secrets, err := service.NewSecretManagerService(context.Background(), cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Secret Manager client: %v", err)
			return nil, nil, nil, err
		}
		apiKey, err = secrets.GetSecret(context.Background(), cfg.OpenAIAPIKeySecret)
		if err != nil {
			logger.Fatal().Msgf("Failed to fetch coach model API key: %v", err)
			return nil, nil, nil, err
		}
		if err := secrets.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close Secret Manager client")
		}
	}
	coach := service.NewOpenAICoach(apiKey, cfg.OpenAIModel)

	// Initialize repositories
	usageRepo := repository.NewUsageRepo(pool)
	subscriptionRepo := repository.NewSubscriptionRepo(pool)
	replayRepo := repository.NewReplayRepo(pool)
	userRepo := repository.NewUserRepo(pool)

	// Initialize the metering core. Checks read Postgres directly; queued
	// increments flow through pgmq and are applied by the aggregator, so a
	// crash between flush and apply loses nothing.
	pgmqClient := pgmq.New(pool)
	queuedStore := repository.NewQueuedUsageStore(usageRepo, pgmqClient, cfg.UsageQueueName)

	stalePolicy := quota.StalePeriodOptimistic
	if cfg.UsageStalePeriodMode == "deny" {
		stalePolicy = quota.StalePeriodDeny
	}
	rotationNotifier := pubsub.NewRotationPublisher(pubSubPublisher, cfg.PubSubRotationTopic, logger)
	checker := quota.NewChecker(usageRepo, subscriptionRepo, logger,
		quota.WithRotationNotifier(rotationNotifier),
		quota.WithStalePeriodPolicy(stalePolicy),
	)
	meter := quota.NewMeter(queuedStore, logger,
		quota.WithFlushInterval(time.Duration(cfg.UsageFlushIntervalSec)*time.Second),
		quota.WithMaxPendingAccounts(cfg.UsageFlushMaxAccounts),
		quota.WithFlushTimeout(time.Duration(cfg.UsageFlushTimeoutSec)*time.Second),
	)

	// Initialize services & handlers
	chatSvc := service.NewChatService(checker, meter, subscriptionRepo, coach, logger)
	voiceSvc := service.NewVoiceService(checker, meter, usageRepo, subscriptionRepo, coach, logger)
	replaySvc := service.NewReplayService(replayRepo, checker, meter, s3Client, cfg.S3Bucket, logger)
	usageSvc := service.NewUsageService(usageRepo, subscriptionRepo, logger)
	userSvc := service.NewUserService(userRepo, subscriptionRepo, cfg.FreePlanID, logger)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, cfg.FreePlanID, logger)

	chatHandler := handler.NewChatHandler(chatSvc, validate, logger)
	voiceHandler := handler.NewVoiceHandler(voiceSvc, validate, logger)
	replayHandler := handler.NewReplayHandler(replaySvc, validate, logger)
	usageHandler := handler.NewUsageHandler(usageSvc, logger)
	userHandler := handler.NewUserHandler(userSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionSvc, validate, logger)
	rotationHandler := handler.NewRotationHandler(usageSvc, validate, logger)

	// Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.RotationEndpointURL, cfg.PubSubPushServiceAccountEmail, logger)

	// Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	chatHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	voiceHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	replayHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	usageHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	rotationHandler.RegisterRoutes(apiV1Mux, pubsubAuthMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Allow all origins for development
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, meter, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
