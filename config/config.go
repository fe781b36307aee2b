package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
)

// Store backends for per-device state.
const (
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// Guest cart policies applied when an anonymous device signs in.
const (
	GuestCartDiscard = "discard"
	GuestCartMerge   = "merge"
)

// Config holds the loaded configuration
type Config struct {
	Port           string
	Env            string
	APIGatewayURL  string
	RequestTimeout time.Duration

	StoreBackend  string
	RedisURL      string
	DynamoDBTable string
	DeviceTTL     time.Duration

	JWTSecret      string
	DeviceCookie   string
	SecureCookies  bool
	AllowedOrigins []string

	GuestCartPolicy     string
	CartCacheTTL        time.Duration
	CartCacheSize       int
	CartRefetchDelay    time.Duration
	CartRefetchAttempts uint

	PermissionCacheSize int
	DraftMaxAge         time.Duration

	MediaBucket    string
	MediaURLExpiry time.Duration

	EventsTopicARN     string
	CartEventsQueueURL string
	CloudWatchEnabled  bool
	UseSecrets         bool

	RateLimitRPS   float64
	RateLimitBurst int
}

// SecretGetter is satisfied by the AWS Secrets Manager client.
type SecretGetter interface {
	Field(ctx context.Context, name aws_pkg.SecretName, field string) (string, error)
}

// Load reads configuration from the environment (and a .env file when present).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		Env:            getEnv("ENV", "development"),
		APIGatewayURL:  strings.TrimSuffix(getEnv("API_GATEWAY_URL", "http://api-gateway:8080"), "/"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreRedis)),
		RedisURL:      getEnv("REDIS_URL", "redis://redis:6379"),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", "storefront-devices"),
		DeviceTTL:     getDuration("DEVICE_TTL", 0),

		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		DeviceCookie:   getEnv("DEVICE_COOKIE", "sf_device"),
		SecureCookies:  getBool("SECURE_COOKIES", false),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),

		GuestCartPolicy:     strings.ToLower(getEnv("GUEST_CART_POLICY", GuestCartDiscard)),
		CartCacheTTL:        getDuration("CART_CACHE_TTL", 30*time.Second),
		CartCacheSize:       getInt("CART_CACHE_SIZE", 4096),
		CartRefetchDelay:    getDuration("CART_REFETCH_DELAY", 500*time.Millisecond),
		CartRefetchAttempts: uint(getInt("CART_REFETCH_ATTEMPTS", 1)),

		PermissionCacheSize: getInt("PERMISSION_CACHE_SIZE", 256),
		DraftMaxAge:         getDuration("DRAFT_MAX_AGE", 24*time.Hour),

		MediaBucket:    os.Getenv("MEDIA_BUCKET"),
		MediaURLExpiry: getDuration("MEDIA_URL_EXPIRY", 15*time.Minute),

		EventsTopicARN:     os.Getenv("EVENTS_TOPIC_ARN"),
		CartEventsQueueURL: os.Getenv("CART_EVENTS_QUEUE_URL"),
		CloudWatchEnabled:  getBool("CLOUDWATCH_ENABLED", false),
		UseSecrets:         getBool("AWS_USE_SECRETS", false),

		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 40),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreRedis, StoreDynamoDB, StoreMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.GuestCartPolicy {
	case GuestCartDiscard, GuestCartMerge:
	default:
		return fmt.Errorf("unsupported GUEST_CART_POLICY %q", c.GuestCartPolicy)
	}
	if c.APIGatewayURL == "" {
		return fmt.Errorf("API_GATEWAY_URL is required")
	}
	if c.CartCacheSize <= 0 || c.PermissionCacheSize <= 0 {
		return fmt.Errorf("cache sizes must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if len(c.AllowedOrigins) > 1 && slices.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("ALLOWED_ORIGINS cannot mix * with explicit origins")
	}
	return nil
}

// ApplySecrets overrides the JWT secret from Secrets Manager when running on
// AWS. A missing secret keeps the environment value.
func ApplySecrets(ctx context.Context, cfg *Config, sm SecretGetter) error {
	v, err := sm.Field(ctx, aws_pkg.SecretJWT, "JWT_SECRET")
	if errors.Is(err, aws_pkg.ErrSecretNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if v != "" {
		cfg.JWTSecret = v
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSuffix(strings.TrimSpace(v), "/"); v != "" {
			out = append(out, v)
		}
	}
	return out
}
