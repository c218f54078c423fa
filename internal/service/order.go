package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/event"
	"github.com/electroshop/backend/internal/repository"
	apperrors "github.com/electroshop/backend/pkg/errors"
)

// OrderService implements order placement and order queries.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	audit    repository.AuditRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	audit repository.AuditRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		audit:    audit,
		producer: producer,
		logger:   logger,
	}
}

// PlaceOrderItemInput is a single cart line submitted by the customer. Only
// the product reference and quantity are trusted; name and price are
// snapshotted server side.
type PlaceOrderItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0,lte=100"`
}

// PlaceOrderInput holds the parameters for placing an order. The shipping
// address is an optional snapshot; orders for pickup or digital goods carry
// none.
type PlaceOrderInput struct {
	UserID          int64
	Items           []PlaceOrderItemInput `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingAddress *domain.Address       `json:"shipping_address"`
	Notes           string                `json:"notes" validate:"max=1000"`
}

// PlaceOrder validates the cart against the live catalog, snapshots names
// and prices, computes totals and persists the order while atomically
// decrementing stock. Between the validation pass and the transactional
// decrement another order can drain a product, in which case the storage
// layer reports the shortage and nothing is persisted.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	// Merge duplicate product lines so the stock decrement runs once per
	// product.
	quantities := make(map[int64]int, len(input.Items))
	productOrder := make([]int64, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, apperrors.InvalidInput("item quantity must be positive")
		}
		if _, seen := quantities[line.ProductID]; !seen {
			productOrder = append(productOrder, line.ProductID)
		}
		quantities[line.ProductID] += line.Quantity
	}

	items := make([]domain.OrderItem, 0, len(productOrder))
	for _, productID := range productOrder {
		quantity := quantities[productID]

		product, err := s.products.GetActiveByID(ctx, productID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFoundMsg(fmt.Sprintf("Product ID %d not found", productID))
			}
			return nil, fmt.Errorf("get product %d: %w", productID, err)
		}

		if !product.InStock(quantity) {
			return nil, apperrors.OutOfStock(product.Name, product.Stock)
		}

		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
		})
	}

	now := time.Now().UTC()
	order := &domain.Order{
		OrderNumber:     domain.NewOrderNumber(now),
		UserID:          input.UserID,
		Status:          domain.OrderStatusPending,
		Items:           items,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.ComputeTotals()

	err := s.orders.Create(ctx, order)
	if errors.Is(err, apperrors.ErrConflict) {
		// Order number collision. Retry once with a fresh number before
		// surfacing the conflict.
		order.OrderNumber = domain.NewOrderNumber(time.Now().UTC())
		err = s.orders.Create(ctx, order)
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.Int64("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.Int64("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.Int64("user_id", order.UserID),
		slog.Int64("total", order.Total),
	)

	return order, nil
}

// GetOrderForUser retrieves an order scoped to its owner. Someone else's
// order looks exactly like a missing one.
func (s *OrderService) GetOrderForUser(ctx context.Context, orderID, userID int64) (*domain.Order, error) {
	order, err := s.orders.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("get order for user: %w", err)
	}
	return order, nil
}

// ListOrdersForUser returns the user's own orders, newest first.
func (s *OrderService) ListOrdersForUser(ctx context.Context, userID int64, page, perPage int) ([]domain.Order, int, error) {
	filter := repository.OrderFilter{
		UserID:  &userID,
		Page:    page,
		PerPage: perPage,
	}
	return s.listOrders(ctx, filter)
}

// GetOrder retrieves any order for the back office.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// ListOrders returns a filtered, paginated list of all orders for the back
// office.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s",
			*filter.Status, strings.Join(domain.ValidStatuses(), ", ")))
	}
	return s.listOrders(ctx, filter)
}

func (s *OrderService) listOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// UpdateOrderStatus sets an order's status from the back office. Any valid
// status can be assigned regardless of the current one; support corrections
// are a deliberate part of the workflow.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, adminID, orderID int64, newStatus, ipAddress string) (*domain.Order, error) {
	if !domain.IsValidStatus(newStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s",
			newStatus, strings.Join(domain.ValidStatuses(), ", ")))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	oldStatus := order.Status

	if err := s.orders.UpdateStatus(ctx, orderID, newStatus); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.recordAudit(ctx, adminID, domain.AuditActionUpdateOrderStatus, "order", orderID, ipAddress, map[string]any{
		"old_status": oldStatus,
		"new_status": newStatus,
	})

	if err := s.producer.PublishOrderStatusChanged(ctx, orderID, oldStatus, newStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.Int64("order_id", orderID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
	)

	order.Status = newStatus
	return order, nil
}

// recordAudit appends a best-effort audit entry for an order action.
func (s *OrderService) recordAudit(ctx context.Context, adminID int64, action, entity string, entityID int64, ipAddress string, details map[string]any) {
	writeAudit(ctx, s.audit, s.logger, adminID, action, entity, entityID, ipAddress, details)
}
