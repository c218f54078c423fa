package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/repository"
	apperrors "github.com/electroshop/backend/pkg/errors"
	"github.com/electroshop/backend/pkg/httputil"
)

const placeOrderBody = `{
	"items": [{"product_id": 1, "quantity": 1}],
	"shipping_address": {
		"full_name": "Jane Doe",
		"address_line": "1 Main St",
		"city": "Springfield",
		"postal_code": "12345",
		"country": "US"
	}
}`

func TestPlaceOrder_Success(t *testing.T) {
	s := newTestServer(t)
	user := activeUser(t)
	s.expectUser(user)
	s.products.On("GetActiveByID", mock.Anything, int64(1)).Return(sampleProduct(), nil)
	s.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Order).ID = 42
		}).
		Return(nil)

	rec := s.do(t, http.MethodPost, "/api/orders", s.userToken(t, user.ID), placeOrderBody)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var order domain.Order
	decodeData(t, decodeResponse(t, rec).Data, &order)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, user.ID, order.UserID)
	assert.Equal(t, int64(12999), order.Subtotal)
	assert.Equal(t, int64(15038), order.Total)
}

func TestPlaceOrder_OutOfStock(t *testing.T) {
	s := newTestServer(t)
	user := activeUser(t)
	s.expectUser(user)
	product := sampleProduct()
	product.Stock = 0
	s.products.On("GetActiveByID", mock.Anything, int64(1)).Return(product, nil)

	rec := s.do(t, http.MethodPost, "/api/orders", s.userToken(t, user.ID), placeOrderBody)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeResponse(t, rec).Message, "available: 0")
	s.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	s := newTestServer(t)
	user := activeUser(t)
	s.expectUser(user)

	rec := s.do(t, http.MethodPost, "/api/orders", s.userToken(t, user.ID),
		`{"items": [], "shipping_address": {"full_name": "J", "address_line": "1", "city": "S", "postal_code": "1", "country": "US"}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMyOrders_ScopedToCaller(t *testing.T) {
	s := newTestServer(t)
	user := activeUser(t)
	s.expectUser(user)
	s.orders.On("List", mock.Anything, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.UserID != nil && *f.UserID == user.ID
	})).Return([]domain.Order{*sampleOrder()}, 1, nil)

	rec := s.do(t, http.MethodGet, "/api/orders", s.userToken(t, user.ID), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var data httputil.PaginatedData[domain.Order]
	decodeData(t, decodeResponse(t, rec).Data, &data)
	assert.Len(t, data.Items, 1)
}

func TestGetMyOrder_ForeignOrderHidden(t *testing.T) {
	s := newTestServer(t)
	user := activeUser(t)
	s.expectUser(user)
	s.orders.On("GetByIDForUser", mock.Anything, int64(42), user.ID).
		Return(nil, apperrors.NotFound("order", "42"))

	rec := s.do(t, http.MethodGet, "/api/orders/42", s.userToken(t, user.ID), "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminListOrders_StatusFilter(t *testing.T) {
	s := newTestServer(t)
	admin := activeAdmin(t)
	s.expectAdmin(admin)
	s.orders.On("List", mock.Anything, mock.MatchedBy(func(f repository.OrderFilter) bool {
		return f.Status != nil && *f.Status == domain.OrderStatusShipped
	})).Return([]domain.Order{}, 0, nil)

	rec := s.do(t, http.MethodGet, "/api/admin/orders?status=shipped", s.adminToken(t, admin.ID), "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminGetOrder_Success(t *testing.T) {
	s := newTestServer(t)
	admin := activeAdmin(t)
	s.expectAdmin(admin)
	s.orders.On("GetByID", mock.Anything, int64(42)).Return(sampleOrder(), nil)

	rec := s.do(t, http.MethodGet, "/api/admin/orders/42", s.adminToken(t, admin.ID), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var order domain.Order
	decodeData(t, decodeResponse(t, rec).Data, &order)
	assert.Equal(t, "ORD-LX2M3N4P-AB12", order.OrderNumber)
}

func TestAdminUpdateOrderStatus_Success(t *testing.T) {
	s := newTestServer(t)
	admin := activeAdmin(t)
	s.expectAdmin(admin)
	s.orders.On("GetByID", mock.Anything, int64(42)).Return(sampleOrder(), nil)
	s.orders.On("UpdateStatus", mock.Anything, int64(42), domain.OrderStatusConfirmed).Return(nil)
	s.audit.On("Insert", mock.Anything, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)

	rec := s.do(t, http.MethodPatch, "/api/admin/orders/42/status", s.adminToken(t, admin.ID),
		`{"status":"confirmed"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var order domain.Order
	decodeData(t, decodeResponse(t, rec).Data, &order)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
}

func TestAdminUpdateOrderStatus_InvalidStatus(t *testing.T) {
	s := newTestServer(t)
	admin := activeAdmin(t)
	s.expectAdmin(admin)

	rec := s.do(t, http.MethodPatch, "/api/admin/orders/42/status", s.adminToken(t, admin.ID),
		`{"status":"canceled"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	s.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
