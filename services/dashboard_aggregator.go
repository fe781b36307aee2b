package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yashrajoria/storefront-bff/models"
)

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// AggregateDashboard folds the three collections into dashboard statistics.
// It is pure: the same inputs and now always produce the same output.
// Calendar comparisons (daily sales, monthly buckets) use now's location.
func AggregateDashboard(role models.Role, orders []models.Order, users []models.User, products []models.Product, now time.Time) models.DashboardStats {
	loc := now.Location()
	year, month, day := now.Date()

	monthly := make([]models.MonthlySales, 12)
	monthlyRevenue := make([]decimal.Decimal, 12)
	for i := range monthly {
		monthly[i].Month = monthNames[i]
		monthlyRevenue[i] = decimal.Zero
	}

	total, paid := decimal.Zero, decimal.Zero
	var daily, paidCount int
	for _, o := range orders {
		total = total.Add(o.TotalPrice)
		if o.IsPaid {
			paid = paid.Add(o.TotalPrice)
			paidCount++
		}

		if o.CreatedAt.IsZero() {
			continue
		}
		oy, om, od := o.CreatedAt.In(loc).Date()
		if oy == year && om == month && od == day {
			daily++
		}
		if oy == year {
			monthly[om-1].Orders++
			monthlyRevenue[om-1] = monthlyRevenue[om-1].Add(o.TotalPrice)
		}
	}
	for i := range monthly {
		monthly[i].Revenue = monthlyRevenue[i].InexactFloat64()
	}

	var counts models.UserCounts
	for _, u := range users {
		switch models.Role(strings.ToLower(strings.TrimSpace(u.Role))) {
		case models.RoleBuyer:
			counts.Buyers++
		case models.RoleSeller:
			counts.Sellers++
		case models.RoleAdmin:
			counts.Admins++
		}
	}

	return models.DashboardStats{
		Role:          role,
		TotalRevenue:  total.InexactFloat64(),
		PaidRevenue:   paid.InexactFloat64(),
		DailySales:    daily,
		TotalOrders:   len(orders),
		TotalProducts: len(products),
		TotalUsers:    len(users),
		UserCounts:    counts,
		MonthlySales:  monthly,
		PaymentStatusData: []models.StatusSlice{
			{Name: "Paid", Value: paidCount},
			{Name: "Pending", Value: len(orders) - paidCount},
		},
	}
}
