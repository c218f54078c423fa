package domain

import "time"

// DashboardStats holds the headline counters shown on the back-office
// dashboard. Revenue is cents and excludes cancelled and refunded orders.
type DashboardStats struct {
	TotalUsers    int   `json:"total_users"`
	TotalProducts int   `json:"total_products"`
	TotalOrders   int   `json:"total_orders"`
	TotalRevenue  int64 `json:"total_revenue"`
	PendingOrders int   `json:"pending_orders"`
	LowStock      int   `json:"low_stock"`
}

// RecentOrder is a dashboard row pairing an order with its buyer.
type RecentOrder struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	Total       int64     `json:"total"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

// MonthlyRevenue is one month's revenue bucket, keyed "YYYY-MM".
type MonthlyRevenue struct {
	Month   string `json:"month"`
	Revenue int64  `json:"revenue"`
	Orders  int    `json:"orders"`
}

// Dashboard aggregates everything the back-office landing page renders.
type Dashboard struct {
	Stats          DashboardStats   `json:"stats"`
	RecentOrders   []RecentOrder    `json:"recent_orders"`
	MonthlyRevenue []MonthlyRevenue `json:"monthly_revenue"`
}
