package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/repository"
)

const (
	lowStockThreshold   = 10
	recentOrderLimit    = 5
	revenueWindowMonths = 6
)

// ReportService assembles the back-office dashboard.
type ReportService struct {
	reports repository.ReportRepository
	logger  *slog.Logger
}

// NewReportService creates a new report service.
func NewReportService(reports repository.ReportRepository, logger *slog.Logger) *ReportService {
	return &ReportService{reports: reports, logger: logger}
}

// Dashboard collects the headline counters, the latest orders and the
// trailing monthly revenue in one payload.
func (s *ReportService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	stats, err := s.reports.DashboardStats(ctx, lowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	recent, err := s.reports.RecentOrders(ctx, recentOrderLimit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}

	monthly, err := s.reports.MonthlyRevenue(ctx, revenueWindowMonths)
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}

	return &domain.Dashboard{
		Stats:          *stats,
		RecentOrders:   recent,
		MonthlyRevenue: monthly,
	}, nil
}
