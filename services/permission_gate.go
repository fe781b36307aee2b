package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/yashrajoria/storefront-bff/models"
	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
)

// PermissionGate decodes seller permission blobs. Anything it cannot read
// grants nothing.
type PermissionGate struct {
	mu      sync.Mutex
	memo    *lru.Cache[string, models.Permissions]
	metrics aws_pkg.MetricsRecorder
	logger  *zap.Logger
}

func NewPermissionGate(size int, metrics aws_pkg.MetricsRecorder, logger *zap.Logger) (*PermissionGate, error) {
	memo, err := lru.New[string, models.Permissions](size)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = aws_pkg.NopMetrics{}
	}
	return &PermissionGate{memo: memo, metrics: metrics, logger: logger}, nil
}

// Parse accepts nil, a Permissions value, JSON text (string, []byte or
// json.RawMessage, possibly a JSON string that itself holds JSON) or an
// already decoded map. Missing keys are false. Results are memoized per
// raw value, so a malformed value is parsed and logged once.
func (g *PermissionGate) Parse(raw any) models.Permissions {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return models.Permissions{}
	case models.Permissions:
		return v
	case *models.Permissions:
		if v == nil {
			return models.Permissions{}
		}
		return *v
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return g.reject(fmt.Sprintf("%T", raw), err)
		}
		data = b
	default:
		return g.reject(fmt.Sprintf("%T", raw), fmt.Errorf("unsupported permissions type %T", raw))
	}

	key := string(data)
	g.mu.Lock()
	defer g.mu.Unlock()

	if perms, ok := g.memo.Get(key); ok {
		return perms
	}
	perms, err := decodePermissions(data)
	if err != nil {
		perms = g.reject(key, err)
	}
	g.memo.Add(key, perms)
	return perms
}

func (g *PermissionGate) reject(raw string, err error) models.Permissions {
	g.logger.Warn("malformed seller permissions, denying all capabilities",
		zap.String("raw", truncate(raw, 256)),
		zap.Error(err),
	)
	_ = g.metrics.RecordCount(context.Background(), aws_pkg.MetricPermissionParseFailures, nil)
	return models.Permissions{}
}

func decodePermissions(data []byte) (models.Permissions, error) {
	var perms models.Permissions
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return perms, nil
	}

	// Some records hold the object double-encoded as a JSON string.
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return models.Permissions{}, err
		}
		data = bytes.TrimSpace([]byte(inner))
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return perms, nil
		}
	}

	if err := json.Unmarshal(data, &perms); err != nil {
		return models.Permissions{}, err
	}
	return perms, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
