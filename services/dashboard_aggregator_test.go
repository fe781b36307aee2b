package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashrajoria/storefront-bff/models"
)

func order(price int64, paid bool, at time.Time) models.Order {
	return models.Order{TotalPrice: decimal.NewFromInt(price), IsPaid: paid, CreatedAt: at}
}

func TestAggregate_CoercesStringPrices(t *testing.T) {
	var orders []models.Order
	require.NoError(t, json.Unmarshal([]byte(`[{"totalPrice":"100"},{"totalPrice":50}]`), &orders))

	stats := AggregateDashboard(models.RoleAdmin, orders, nil, nil, time.Now())
	assert.Equal(t, 150.0, stats.TotalRevenue)
}

func TestAggregate_RejectsNonNumericPrice(t *testing.T) {
	var orders []models.Order
	err := json.Unmarshal([]byte(`[{"totalPrice":"lots"}]`), &orders)
	assert.Error(t, err)
}

func TestAggregate_AdminScenario(t *testing.T) {
	now := time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC)
	orders := []models.Order{
		order(1000, true, now.Add(-3*time.Hour)),
		order(500, false, now.AddDate(0, 0, -1)),
	}

	stats := AggregateDashboard(models.RoleAdmin, orders, nil, nil, now)

	assert.Equal(t, 1500.0, stats.TotalRevenue)
	assert.Equal(t, 1000.0, stats.PaidRevenue)
	assert.Equal(t, 1, stats.DailySales)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, []models.StatusSlice{{Name: "Paid", Value: 1}, {Name: "Pending", Value: 1}}, stats.PaymentStatusData)

	require.Len(t, stats.MonthlySales, 12)
	assert.Equal(t, models.MonthlySales{Month: "May", Orders: 2, Revenue: 1500}, stats.MonthlySales[4])
	assert.Equal(t, "Jan", stats.MonthlySales[0].Month)
	assert.Equal(t, "Dec", stats.MonthlySales[11].Month)
}

func TestAggregate_DailySalesIsCalendarDay(t *testing.T) {
	now := time.Date(2026, time.May, 15, 0, 30, 0, 0, time.UTC)
	orders := []models.Order{
		order(10, true, time.Date(2026, time.May, 14, 23, 50, 0, 0, time.UTC)),
	}

	stats := AggregateDashboard(models.RoleAdmin, orders, nil, nil, now)
	assert.Equal(t, 0, stats.DailySales, "40 minutes ago but yesterday")
}

func TestAggregate_UsesNowLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2026, time.May, 15, 9, 0, 0, 0, ist)
	// 20:00 UTC on the 14th is 01:30 on the 15th in IST.
	orders := []models.Order{order(10, true, time.Date(2026, time.May, 14, 20, 0, 0, 0, time.UTC))}

	stats := AggregateDashboard(models.RoleAdmin, orders, nil, nil, now)
	assert.Equal(t, 1, stats.DailySales)
}

func TestAggregate_MonthlyOnlyCurrentYear(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	orders := []models.Order{
		order(100, true, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)),
		order(40, true, time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)),
	}

	stats := AggregateDashboard(models.RoleAdmin, orders, nil, nil, now)
	assert.Equal(t, 140.0, stats.TotalRevenue)
	assert.Equal(t, 1, stats.MonthlySales[0].Orders)
	assert.Equal(t, 40.0, stats.MonthlySales[0].Revenue)
	assert.Equal(t, 0, stats.MonthlySales[2].Orders)
}

func TestAggregate_RoleCounts(t *testing.T) {
	users := []models.User{
		{Role: "Admin"}, {Role: "SELLER"}, {Role: "buyer"}, {Role: " buyer "}, {Role: "support"},
	}
	products := []models.Product{{ID: 1}, {ID: 2}}

	stats := AggregateDashboard(models.RoleAdmin, nil, users, products, time.Now())
	assert.Equal(t, models.UserCounts{Buyers: 2, Sellers: 1, Admins: 1}, stats.UserCounts)
	assert.Equal(t, 5, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalProducts)
}

func TestAggregate_Empty(t *testing.T) {
	stats := AggregateDashboard(models.RoleSeller, nil, nil, nil, time.Now())

	assert.Equal(t, models.RoleSeller, stats.Role)
	assert.Zero(t, stats.TotalRevenue)
	assert.Len(t, stats.MonthlySales, 12)
	assert.Equal(t, []models.StatusSlice{{Name: "Paid", Value: 0}, {Name: "Pending", Value: 0}}, stats.PaymentStatusData)
}

func TestAggregate_Deterministic(t *testing.T) {
	now := time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC)
	orders := []models.Order{order(1, true, now), order(2, false, now)}

	assert.Equal(t,
		AggregateDashboard(models.RoleAdmin, orders, nil, nil, now),
		AggregateDashboard(models.RoleAdmin, orders, nil, nil, now),
	)
}
