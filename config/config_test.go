package config

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("GUEST_CART_POLICY", "")
	t.Setenv("API_GATEWAY_URL", "")
	t.Setenv("CART_CACHE_TTL", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, GuestCartDiscard, cfg.GuestCartPolicy)
	assert.Equal(t, "http://api-gateway:8080", cfg.APIGatewayURL)
	assert.Equal(t, 30*time.Second, cfg.CartCacheTTL)
	assert.Equal(t, "sf_device", cfg.DeviceCookie)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "DynamoDB")
	t.Setenv("GUEST_CART_POLICY", "merge")
	t.Setenv("API_GATEWAY_URL", "http://gateway.local/")
	t.Setenv("CART_REFETCH_ATTEMPTS", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example.com/, https://admin.example.com")
	t.Setenv("DRAFT_MAX_AGE", "2h")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreDynamoDB, cfg.StoreBackend)
	assert.Equal(t, GuestCartMerge, cfg.GuestCartPolicy)
	assert.Equal(t, "http://gateway.local", cfg.APIGatewayURL)
	assert.Equal(t, uint(3), cfg.CartRefetchAttempts)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.DraftMaxAge)
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("GUEST_CART_POLICY", "keep")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("GUEST_CART_POLICY", "discard")
	t.Setenv("ALLOWED_ORIGINS", "*,https://shop.example.com")
	_, err = Load()
	assert.Error(t, err)
}

type stubSecretsManager struct {
	value *string
	err   error
	calls int
}

func (s *stubSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: s.value}, nil
}

func secrets(sm *stubSecretsManager) *aws_pkg.SecretsClient {
	return aws_pkg.NewSecretsClientWithAPI(sm, time.Minute)
}

func TestApplySecrets(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{JWTSecret: "env"}

	require.NoError(t, ApplySecrets(ctx, cfg, secrets(&stubSecretsManager{value: sdkaws.String(`{"JWT_SECRET":"from-json"}`)})))
	assert.Equal(t, "from-json", cfg.JWTSecret)

	require.NoError(t, ApplySecrets(ctx, cfg, secrets(&stubSecretsManager{value: sdkaws.String(" plain \n")})))
	assert.Equal(t, "plain", cfg.JWTSecret)

	require.NoError(t, ApplySecrets(ctx, cfg, secrets(&stubSecretsManager{value: sdkaws.String(`{"OTHER":"x"}`)})))
	assert.Equal(t, "plain", cfg.JWTSecret, "a secret without the field keeps the current value")

	missing := &stubSecretsManager{err: &smtypes.ResourceNotFoundException{Message: sdkaws.String("no such secret")}}
	require.NoError(t, ApplySecrets(ctx, cfg, secrets(missing)))
	assert.Equal(t, "plain", cfg.JWTSecret)

	assert.Error(t, ApplySecrets(ctx, cfg, secrets(&stubSecretsManager{err: errors.New("denied")})))
	assert.Equal(t, "plain", cfg.JWTSecret)
}

func TestSecretsClient_CachesValue(t *testing.T) {
	sm := &stubSecretsManager{value: sdkaws.String("s3cret")}
	client := secrets(sm)

	for i := 0; i < 3; i++ {
		v, err := client.Value(context.Background(), aws_pkg.SecretJWT)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, sm.calls)
}
