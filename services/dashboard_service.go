package services

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/logger"
	"github.com/yashrajoria/storefront-bff/models"
	aws_pkg "github.com/yashrajoria/storefront-bff/pkg/aws"
)

type dashboardSources struct {
	users    string
	products string
	orders   string
}

var (
	adminSources  = dashboardSources{users: "/auth/users", products: "/products", orders: "/orders/all"}
	sellerSources = dashboardSources{users: "/sellers/my-customers", products: "/sellers/my-products", orders: "/sellers/my-orders"}
)

// DashboardService builds dashboard statistics for admins and sellers.
type DashboardService interface {
	Stats(ctx context.Context, sess models.Session) (models.DashboardStats, *apperrors.Error)
}

type dashboardServiceImpl struct {
	upstream Upstream
	metrics  aws_pkg.MetricsRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewDashboardService(upstream Upstream, metrics aws_pkg.MetricsRecorder, logger *zap.Logger) DashboardService {
	if metrics == nil {
		metrics = aws_pkg.NopMetrics{}
	}
	return &dashboardServiceImpl{upstream: upstream, metrics: metrics, logger: logger, now: time.Now}
}

// Stats fetches the three collections concurrently. A collection that
// fails to load counts as empty, so the caller always gets statistics.
func (s *dashboardServiceImpl) Stats(ctx context.Context, sess models.Session) (models.DashboardStats, *apperrors.Error) {
	switch {
	case sess.IsInitializing():
		return models.DashboardStats{}, apperrors.ErrSessionInitializing
	case !sess.IsAuthenticated():
		return models.DashboardStats{}, apperrors.ErrUnauthorized
	}

	var src dashboardSources
	switch sess.Role {
	case models.RoleAdmin:
		src = adminSources
	case models.RoleSeller:
		src = sellerSources
	default:
		return models.DashboardStats{}, apperrors.Forbidden("Dashboard is available to sellers and admins only")
	}

	var (
		orders   []models.Order
		users    []models.User
		products []models.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders = fetchList[models.Order](gctx, s, sess, src.orders)
		return nil
	})
	g.Go(func() error {
		users = fetchList[models.User](gctx, s, sess, src.users)
		return nil
	})
	g.Go(func() error {
		products = fetchList[models.Product](gctx, s, sess, src.products)
		return nil
	})
	_ = g.Wait()

	return AggregateDashboard(sess.Role, orders, users, products, s.now()), nil
}

func fetchList[T any](ctx context.Context, s *dashboardServiceImpl, sess models.Session, path string) []T {
	var out []T
	if err := s.upstream.DoJSON(ctx, http.MethodGet, path, nil, sess.Token, nil, &out); err != nil {
		s.logger.Warn("dashboard collection unavailable, treating as empty",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("path", path),
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err),
		)
		_ = s.metrics.RecordCount(ctx, aws_pkg.MetricDashboardFetchFailures, map[string]string{"path": path})
		return []T{}
	}
	if out == nil {
		out = []T{}
	}
	return out
}
