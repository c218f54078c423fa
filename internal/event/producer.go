// Package event publishes domain events to Kafka for downstream consumers
// (fulfilment, analytics, marketing).
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/electroshop/backend/internal/domain"
	pkgkafka "github.com/electroshop/backend/pkg/kafka"
	"github.com/electroshop/backend/pkg/logger"
)

// Kafka topics for domain events.
const (
	TopicUserRegistered     = "electroshop.user.registered"
	TopicOrderCreated       = "electroshop.order.created"
	TopicOrderStatusChanged = "electroshop.order.status_changed"
)

const (
	AggregateTypeUser  = "user"
	AggregateTypeOrder = "order"
)

// SourceBackend identifies events originating from this service.
const SourceBackend = "electroshop-backend"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// OrderCreatedData is the payload for an order.created event. It carries the
// full order snapshot so consumers don't have to read it back.
type OrderCreatedData struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Status      string          `json:"status"`
	Items       []OrderItemData `json:"items"`
	Subtotal    int64           `json:"subtotal"`
	Tax         int64           `json:"tax"`
	ShippingFee int64           `json:"shipping_fee"`
	Total       int64           `json:"total"`
}

// OrderItemData is the event payload for an order line item.
type OrderItemData struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// publish wraps data in the event envelope, tags it with the request's
// correlation ID when one is present, and writes it to the topic.
func (p *Producer) publish(ctx context.Context, topic, aggregateType string, aggregateID int64, data any) error {
	ev, err := pkgkafka.NewEvent(topic, strconv.FormatInt(aggregateID, 10), aggregateType, SourceBackend, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	ev.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	if err := p.publish(ctx, TopicUserRegistered, AggregateTypeUser, user.ID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.Int64("user_id", user.ID),
	)
	return nil
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	data := OrderCreatedData{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		Items:       items,
		Subtotal:    order.Subtotal,
		Tax:         order.Tax,
		ShippingFee: order.ShippingFee,
		Total:       order.Total,
	}

	if err := p.publish(ctx, TopicOrderCreated, AggregateTypeOrder, order.ID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.Int64("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
	)
	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID int64, oldStatus, newStatus string) error {
	data := OrderStatusChangedData{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}

	if err := p.publish(ctx, TopicOrderStatusChanged, AggregateTypeOrder, orderID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.Int64("order_id", orderID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
	)
	return nil
}
