package models

// MonthlySales is one Jan..Dec bucket of the current calendar year.
type MonthlySales struct {
	Month   string  `json:"month"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type StatusSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type UserCounts struct {
	Buyers  int `json:"buyers"`
	Sellers int `json:"sellers"`
	Admins  int `json:"admins"`
}

// DashboardStats is derived on every request and never persisted.
type DashboardStats struct {
	Role              Role           `json:"role"`
	TotalRevenue      float64        `json:"totalRevenue"`
	PaidRevenue       float64        `json:"paidRevenue"`
	DailySales        int            `json:"dailySales"`
	TotalOrders       int            `json:"totalOrders"`
	TotalProducts     int            `json:"totalProducts"`
	TotalUsers        int            `json:"totalUsers"`
	UserCounts        UserCounts     `json:"userCounts"`
	MonthlySales      []MonthlySales `json:"monthlySales"`
	PaymentStatusData []StatusSlice  `json:"paymentStatusData"`
}
