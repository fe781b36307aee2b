package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SecretName is a Secrets Manager secret id.
type SecretName string

// SecretJWT holds the token signing secret, either bare or as
// {"JWT_SECRET": "..."}.
const SecretJWT SecretName = "storefront/JWT_SECRET"

// ErrSecretNotFound is returned when the secret or the requested field does
// not exist.
var ErrSecretNotFound = errors.New("secret not found")

// SecretsManagerAPI is the part of the Secrets Manager client in use.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads string secrets. Values are cached for ttl so rotated
// secrets are picked up without a restart.
type SecretsClient struct {
	api   SecretsManagerAPI
	cache *expirable.LRU[SecretName, string]
}

func NewSecretsClient(cfg sdkaws.Config, ttl time.Duration) *SecretsClient {
	return NewSecretsClientWithAPI(secretsmanager.NewFromConfig(cfg), ttl)
}

func NewSecretsClientWithAPI(api SecretsManagerAPI, ttl time.Duration) *SecretsClient {
	return &SecretsClient{
		api:   api,
		cache: expirable.NewLRU[SecretName, string](32, nil, ttl),
	}
}

// Value returns the raw secret string.
func (s *SecretsClient) Value(ctx context.Context, name SecretName) (string, error) {
	if v, ok := s.cache.Get(name); ok {
		return v, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(string(name))})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
		}
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.cache.Add(name, *out.SecretString)
	return *out.SecretString, nil
}

// Field returns field from a JSON object secret, or the whole trimmed value
// when the secret is not a JSON object.
func (s *SecretsClient) Field(ctx context.Context, name SecretName, field string) (string, error) {
	raw, err := s.Value(ctx, name)
	if err != nil {
		return "", err
	}

	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return strings.TrimSpace(raw), nil
	}
	v, ok := m[field]
	if !ok || v == "" {
		return "", fmt.Errorf("%s.%s: %w", name, field, ErrSecretNotFound)
	}
	return v, nil
}
