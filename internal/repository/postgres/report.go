package postgres

import (
	"context"
	"fmt"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/pkg/database"
)

// ReportRepository implements repository.ReportRepository using PostgreSQL.
type ReportRepository struct {
	pool database.DBTX
}

// NewReportRepository creates a new PostgreSQL-backed report repository.
func NewReportRepository(pool database.DBTX) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// DashboardStats collects the headline counters in a single round trip.
// Cancelled and refunded orders are excluded from revenue but still counted
// in the order total.
func (r *ReportRepository) DashboardStats(ctx context.Context, lowStockThreshold int) (*domain.DashboardStats, error) {
	query := `
		SELECT
			(SELECT count(*) FROM users WHERE is_active) AS total_users,
			(SELECT count(*) FROM products WHERE is_active) AS total_products,
			(SELECT count(*) FROM orders) AS total_orders,
			(SELECT COALESCE(sum(total), 0) FROM orders
				WHERE status NOT IN ('cancelled', 'refunded')) AS total_revenue,
			(SELECT count(*) FROM orders WHERE status = 'pending') AS pending_orders,
			(SELECT count(*) FROM products
				WHERE stock < $1 AND is_active) AS low_stock`

	var stats domain.DashboardStats
	err := r.pool.QueryRow(ctx, query, lowStockThreshold).Scan(
		&stats.TotalUsers,
		&stats.TotalProducts,
		&stats.TotalOrders,
		&stats.TotalRevenue,
		&stats.PendingOrders,
		&stats.LowStock,
	)
	if err != nil {
		return nil, fmt.Errorf("query dashboard stats: %w", err)
	}

	return &stats, nil
}

// RecentOrders returns the latest orders joined with buyer identity.
func (r *ReportRepository) RecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error) {
	query := `
		SELECT o.id, o.order_number, o.status, o.total, o.created_at,
			   u.first_name, u.last_name, u.email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.RecentOrder, 0, limit)
	for rows.Next() {
		var o domain.RecentOrder
		if err := rows.Scan(
			&o.ID,
			&o.OrderNumber,
			&o.Status,
			&o.Total,
			&o.CreatedAt,
			&o.FirstName,
			&o.LastName,
			&o.Email,
		); err != nil {
			return nil, fmt.Errorf("scan recent order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent order rows: %w", err)
	}

	return orders, nil
}

// MonthlyRevenue buckets revenue and order counts by calendar month over the
// trailing window, oldest month first.
func (r *ReportRepository) MonthlyRevenue(ctx context.Context, months int) ([]domain.MonthlyRevenue, error) {
	query := `
		SELECT to_char(created_at, 'YYYY-MM') AS month,
			   COALESCE(sum(total), 0) AS revenue,
			   count(*) AS orders
		FROM orders
		WHERE created_at >= now() - make_interval(months => $1)
		  AND status NOT IN ('cancelled', 'refunded')
		GROUP BY month
		ORDER BY month ASC`

	rows, err := r.pool.Query(ctx, query, months)
	if err != nil {
		return nil, fmt.Errorf("query monthly revenue: %w", err)
	}
	defer rows.Close()

	buckets := make([]domain.MonthlyRevenue, 0, months)
	for rows.Next() {
		var m domain.MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Revenue, &m.Orders); err != nil {
			return nil, fmt.Errorf("scan monthly revenue row: %w", err)
		}
		buckets = append(buckets, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly revenue rows: %w", err)
	}

	return buckets, nil
}
