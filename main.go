package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/clients"
	"github.com/yashrajoria/storefront-bff/config"
	"github.com/yashrajoria/storefront-bff/controllers"
	"github.com/yashrajoria/storefront-bff/database"
	"github.com/yashrajoria/storefront-bff/logger"
	"github.com/yashrajoria/storefront-bff/middleware"
	"github.com/yashrajoria/storefront-bff/models"
	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
	dynamo_pkg "github.com/yashrajoria/storefront-bff/pkg/dynamodb"
	"github.com/yashrajoria/storefront-bff/routes"
	"github.com/yashrajoria/storefront-bff/services"
)

const serviceName = "storefront-bff"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.Initialize(cfg.Env)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	// --- AWS setup (only when something needs it) ---
	var awsCfg sdkaws.Config
	needsAWS := cfg.CloudWatchEnabled || cfg.UseSecrets || cfg.MediaBucket != "" ||
		cfg.EventsTopicARN != "" || cfg.CartEventsQueueURL != "" || cfg.StoreBackend == config.StoreDynamoDB
	if needsAWS {
		awsCfg, err = aws_pkg.LoadAWSConfig(ctx, log)
		if err != nil {
			log.Fatal("Failed to load AWS config", zap.Error(err))
		}
	}

	if cfg.CloudWatchEnabled {
		cwWriter, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName)
		if err != nil {
			log.Warn("CloudWatch logs init failed (non-fatal)", zap.Error(err))
		} else {
			log = logger.InitializeWithWriter(cfg.Env, cwWriter)
		}
	}

	if cfg.UseSecrets {
		if err := config.ApplySecrets(ctx, cfg, aws_pkg.NewSecretsClient(awsCfg, 15*time.Minute)); err != nil {
			log.Warn("Secrets Manager lookup failed, using environment JWT secret", zap.Error(err))
		}
	}

	var metrics aws_pkg.MetricsRecorder = aws_pkg.NopMetrics{}
	if cfg.CloudWatchEnabled {
		metrics = aws_pkg.NewMetricsClient(awsCfg, true)
	}

	// --- Device store ---
	store, closeStore := openDeviceStore(ctx, cfg, awsCfg, log)
	defer closeStore()

	// --- Upstream + sessions ---
	gateway := clients.NewGatewayClient(cfg.APIGatewayURL, cfg.RequestTimeout)

	var verifier middleware.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = middleware.NewJWTVerifier(cfg.JWTSecret)
	} else {
		log.Info("JWT_SECRET not set, verifying tokens against the auth service")
		verifier = middleware.NewUpstreamVerifier(gateway)
	}
	sessions := middleware.NewSessionResolver(verifier, store, cfg.DeviceCookie, cfg.SecureCookies, log)

	// --- Services ---
	resolver := services.NewCartResolver(store, services.GuestCartPolicy(cfg.GuestCartPolicy), metrics, log)
	carts, err := services.NewCartService(gateway, resolver, cfg.CartCacheSize, cfg.CartCacheTTL,
		services.RefetchPolicy{Delay: cfg.CartRefetchDelay, MaxAttempts: cfg.CartRefetchAttempts, Timeout: cfg.RequestTimeout},
		metrics, log)
	if err != nil {
		log.Fatal("Failed to create cart service", zap.Error(err))
	}
	sessions.SetReconciler(func(ctx context.Context, sess models.Session) *apperrors.Error {
		return carts.Reconcile(ctx, sess)
	})

	// Backend cart events invalidate cached views on every instance.
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if cfg.CartEventsQueueURL != "" {
		consumer := aws_pkg.NewSQSConsumer(awsCfg, cfg.CartEventsQueueURL, log)
		go func() {
			_ = consumer.StartPolling(consumerCtx, services.CartEventHandler(carts, log))
		}()
	}

	gate, err := services.NewPermissionGate(cfg.PermissionCacheSize, metrics, log)
	if err != nil {
		log.Fatal("Failed to create permission gate", zap.Error(err))
	}

	var publisher aws_pkg.SNSPublisher
	if cfg.EventsTopicARN != "" {
		publisher = aws_pkg.NewSNSClient(awsCfg, log)
	}
	sellers := services.NewSellerService(gateway, gate, publisher, cfg.EventsTopicARN, metrics, log)
	orders := services.NewOrderActions(gateway, sellers, log)
	dashboard := services.NewDashboardService(gateway, metrics, log)

	var presigner services.MediaPresigner
	if cfg.MediaBucket != "" {
		presigner = aws_pkg.NewS3Presigner(awsCfg, cfg.MediaBucket)
	}
	drafts := services.NewDraftService(store, presigner, cfg.DraftMaxAge, cfg.MediaURLExpiry, metrics, log)

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	defer limiter.Stop()

	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.SecurityHeaders(),
		middleware.RateLimitMiddleware(limiter),
		middleware.MetricsMiddleware(metrics, serviceName),
		middleware.Timeout(cfg.RequestTimeout),
		sessions.Middleware(),
		middleware.RequestLogger(log),
		apperrors.ErrorMiddleware(),
	)

	routes.RegisterRoutes(r, routes.Controllers{
		BFF:       controllers.NewBFFController(gateway, sessions, carts, log),
		Cart:      controllers.NewCartController(carts),
		Dashboard: controllers.NewDashboardController(dashboard),
		Seller:    controllers.NewSellerController(sellers, orders),
		Draft:     controllers.NewDraftController(drafts),
	})

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info("Storefront BFF started", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

// openDeviceStore builds the configured per-device store and its cleanup.
func openDeviceStore(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config, log *zap.Logger) (database.DeviceStore, func()) {
	switch cfg.StoreBackend {
	case config.StoreDynamoDB:
		client := dynamo_pkg.NewClientFromConfig(awsCfg)
		if cfg.Env != "production" {
			if err := dynamo_pkg.EnsureTable(ctx, client, cfg.DynamoDBTable); err != nil {
				log.Fatal("Failed to ensure DynamoDB table", zap.String("table", cfg.DynamoDBTable), zap.Error(err))
			}
		}
		log.Info("Using DynamoDB device store", zap.String("table", cfg.DynamoDBTable))
		return database.NewDynamoDeviceStore(client, cfg.DynamoDBTable, cfg.DeviceTTL), func() {}

	case config.StoreMemory:
		log.Warn("Using in-memory device store; anonymous carts are lost on restart")
		return database.NewMemoryDeviceStore(), func() {}

	default:
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Info("Using Redis device store")
		return database.NewRedisDeviceStore(rdb, cfg.DeviceTTL), func() {
			if err := rdb.Close(); err != nil {
				log.Warn("Redis close failed", zap.Error(err))
			}
		}
	}
}
