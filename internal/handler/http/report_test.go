package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/electroshop/backend/internal/domain"
)

func TestDashboard_Success(t *testing.T) {
	s := newTestServer(t)
	admin := activeAdmin(t)
	admin.Permissions = domain.AllPermissions()
	s.expectAdmin(admin)

	s.reports.On("DashboardStats", mock.Anything, 10).Return(&domain.DashboardStats{
		TotalUsers:    120,
		TotalProducts: 34,
		TotalOrders:   500,
		TotalRevenue:  7512345,
		PendingOrders: 8,
		LowStock:      3,
	}, nil)
	s.reports.On("RecentOrders", mock.Anything, 5).Return([]domain.RecentOrder{
		{ID: 500, OrderNumber: "ORD-ABC123-XY7Q", Status: domain.OrderStatusPending,
			Total: 18275, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
			CreatedAt: time.Now().UTC()},
	}, nil)
	s.reports.On("MonthlyRevenue", mock.Anything, 6).Return([]domain.MonthlyRevenue{
		{Month: "2024-05", Revenue: 1250000, Orders: 80},
		{Month: "2024-06", Revenue: 1430050, Orders: 92},
	}, nil)

	rec := s.do(t, http.MethodGet, "/api/admin/dashboard", s.adminToken(t, admin.ID), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var got domain.Dashboard
	decodeData(t, decodeResponse(t, rec).Data, &got)
	assert.Equal(t, 500, got.Stats.TotalOrders)
	assert.Equal(t, int64(7512345), got.Stats.TotalRevenue)
	assert.Len(t, got.RecentOrders, 1)
	assert.Equal(t, "ORD-ABC123-XY7Q", got.RecentOrders[0].OrderNumber)
	assert.Len(t, got.MonthlyRevenue, 2)
	assert.Equal(t, "2024-06", got.MonthlyRevenue[1].Month)
}

func TestDashboard_RequiresReportsPermission(t *testing.T) {
	s := newTestServer(t)
	admin := activeAdmin(t)
	s.expectAdmin(admin)

	rec := s.do(t, http.MethodGet, "/api/admin/dashboard", s.adminToken(t, admin.ID), "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	s.reports.AssertNotCalled(t, "DashboardStats", mock.Anything, mock.Anything)
}
