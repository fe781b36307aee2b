package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yashrajoria/storefront-bff/apperrors"
	"github.com/yashrajoria/storefront-bff/models"
)

func newTestDashboard(up Upstream, now time.Time) DashboardService {
	svc := NewDashboardService(up, nil, zap.NewNop()).(*dashboardServiceImpl)
	svc.now = func() time.Time { return now }
	return svc
}

func TestDashboard_AdminSources(t *testing.T) {
	now := time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC)
	up := newFakeUpstream(func(c upstreamCall) (any, error) {
		switch c.Path {
		case "/orders/all":
			return `[{"id":1,"totalPrice":"1000","isPaid":true,"createdAt":"2026-05-15T09:00:00Z"},{"id":2,"totalPrice":500,"isPaid":false,"createdAt":"2026-05-14T09:00:00Z"}]`, nil
		case "/auth/users":
			return `[{"id":1,"role":"admin"},{"id":2,"role":"buyer"}]`, nil
		case "/products":
			return `[{"id":1,"name":"Lamp","price":"10"}]`, nil
		}
		return nil, apperrors.NotFound("unexpected path")
	})

	stats, appErr := newTestDashboard(up, now).Stats(context.Background(), adminSession())
	require.Nil(t, appErr)

	assert.Equal(t, 1500.0, stats.TotalRevenue)
	assert.Equal(t, 1000.0, stats.PaidRevenue)
	assert.Equal(t, 1, stats.DailySales)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalProducts)
	for _, c := range up.Calls() {
		assert.Equal(t, http.MethodGet, c.Method)
		assert.Equal(t, "admin-token", c.Token)
	}
	assert.Len(t, up.Calls(), 3)
}

func TestDashboard_SellerSources(t *testing.T) {
	up := newFakeUpstream(func(upstreamCall) (any, error) { return `[]`, nil })

	stats, appErr := newTestDashboard(up, time.Now()).Stats(context.Background(), sellerSession("seller-token"))
	require.Nil(t, appErr)
	assert.Equal(t, models.RoleSeller, stats.Role)

	paths := map[string]bool{}
	for _, c := range up.Calls() {
		paths[c.Path] = true
	}
	assert.Equal(t, map[string]bool{
		"/sellers/my-orders":    true,
		"/sellers/my-products":  true,
		"/sellers/my-customers": true,
	}, paths)
}

func TestDashboard_FailedCollectionDegradesToEmpty(t *testing.T) {
	up := newFakeUpstream(func(c upstreamCall) (any, error) {
		switch c.Path {
		case "/orders/all":
			return nil, apperrors.Network(errors.New("timeout"))
		case "/products":
			return `[{"id":1,"price":"lots"}]`, nil
		}
		return `[{"id":1,"role":"buyer"}]`, nil
	})

	stats, appErr := newTestDashboard(up, time.Now()).Stats(context.Background(), adminSession())
	require.Nil(t, appErr)
	assert.Equal(t, 0, stats.TotalOrders)
	assert.Equal(t, 0, stats.TotalProducts, "undecodable collection is treated as empty")
	assert.Equal(t, 1, stats.TotalUsers)
}

func TestDashboard_AccessRules(t *testing.T) {
	up := newFakeUpstream(nil)
	svc := newTestDashboard(up, time.Now())
	ctx := context.Background()

	_, appErr := svc.Stats(ctx, models.Authenticated("dev", 3, models.RoleBuyer, "tok"))
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)

	_, appErr = svc.Stats(ctx, models.Anonymous("dev", nil))
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Code)

	_, appErr = svc.Stats(ctx, models.Initializing("dev"))
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.KindSession, appErr.Kind)

	assert.Empty(t, up.Calls())
}
