package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/electroshop/backend/internal/repository"
	"github.com/electroshop/backend/internal/service"
	"github.com/electroshop/backend/pkg/httputil"
)

// OrderHandler handles HTTP requests for order endpoints. Customers see only
// their own orders; the admin surface sees all of them.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// UpdateOrderStatusRequest is the JSON request body for a status change.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Place handles POST /api/orders
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req service.PlaceOrderInput
	if !decode(w, r, &req) {
		return
	}
	req.UserID = user.ID

	order, err := h.service.PlaceOrder(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "order placed", order)
}

// ListMine handles GET /api/orders
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	orders, total, err := h.service.ListOrdersForUser(r.Context(), user.ID, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "",
		httputil.NewPaginatedData(orders, total, pageOrDefault(page), perPageOrDefault(perPage)))
}

// GetMine handles GET /api/orders/{id}. An order belonging to another
// customer is indistinguishable from a missing one.
func (h *OrderHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrderForUser(r.Context(), id, user.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "", order)
}

// List handles GET /api/admin/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.OrderFilter{Page: page, PerPage: perPage}
	if raw := q.Get("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "invalid user_id: " + raw,
			})
			return
		}
		filter.UserID = &userID
	}
	if status := q.Get("status"); status != "" {
		filter.Status = &status
	}

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "",
		httputil.NewPaginatedData(orders, total, pageOrDefault(page), perPageOrDefault(perPage)))
}

// Get handles GET /api/admin/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "", order)
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), admin.ID, id, req.Status, clientIP(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "order status updated", order)
}
