package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/repository"
	"github.com/electroshop/backend/pkg/database"
	apperrors "github.com/electroshop/backend/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order with its line items and decrements product stock,
// all within a single transaction. The decrement is guarded by
// stock >= quantity AND is_active, so concurrent orders race on the row lock
// and the loser fails cleanly instead of driving stock negative. No rows
// matched means the product either vanished or ran out; a follow-up read
// inside the transaction tells the two apart.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", "INSERT INTO orders ...")
	var err error
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var shippingJSON []byte
	if o.ShippingAddress != nil {
		shippingJSON, err = json.Marshal(o.ShippingAddress)
		if err != nil {
			return fmt.Errorf("marshal shipping address: %w", err)
		}
	}

	orderQuery := `
		INSERT INTO orders (order_number, user_id, status, subtotal, tax, shipping_fee, total, shipping_address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err = tx.QueryRow(ctx, orderQuery,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.Subtotal,
		o.Tax,
		o.ShippingFee,
		o.Total,
		shippingJSON,
		o.Notes,
		o.CreatedAt,
		o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err) {
			err = apperrors.Conflict(fmt.Sprintf("order number %s already taken", o.OrderNumber))
			return err
		}
		err = fmt.Errorf("insert order: %w", err)
		return err
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, name, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	stockQuery := `
		UPDATE products
		SET stock = stock - $1, updated_at = $2
		WHERE id = $3 AND is_active = TRUE AND stock >= $1`

	now := time.Now().UTC()
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID

		if err = tx.QueryRow(ctx, itemQuery,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Price,
			item.Quantity,
		).Scan(&item.ID); err != nil {
			err = fmt.Errorf("insert order item: %w", err)
			return err
		}

		var ct pgconn.CommandTag
		ct, err = tx.Exec(ctx, stockQuery, item.Quantity, now, item.ProductID)
		if err != nil {
			err = fmt.Errorf("decrement stock: %w", err)
			return err
		}
		if ct.RowsAffected() == 0 {
			err = r.diagnoseStockFailure(ctx, tx, item.ProductID)
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		err = fmt.Errorf("commit transaction: %w", err)
		return err
	}

	return nil
}

// diagnoseStockFailure distinguishes a vanished or deactivated product from
// one with insufficient stock. Runs inside the failing transaction, which is
// rolled back regardless.
func (r *OrderRepository) diagnoseStockFailure(ctx context.Context, tx pgx.Tx, productID int64) error {
	var (
		name     string
		stock    int
		isActive bool
	)
	err := tx.QueryRow(ctx, `SELECT name, stock, is_active FROM products WHERE id = $1`, productID).
		Scan(&name, &stock, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFoundMsg(fmt.Sprintf("Product ID %d not found", productID))
		}
		return fmt.Errorf("inspect product %d: %w", productID, err)
	}
	if !isActive {
		return apperrors.NotFoundMsg(fmt.Sprintf("Product ID %d not found", productID))
	}
	return apperrors.OutOfStock(name, stock)
}

// GetByID retrieves an order by its ID, eagerly loading its items.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getOrder(ctx, "o.id = $1", id)
}

// GetByIDForUser retrieves an order only if it belongs to the given user.
// Ownership failures are indistinguishable from missing orders.
func (r *OrderRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	return r.getOrder(ctx, "o.id = $1 AND o.user_id = $2", id, userID)
}

// getOrder fetches a single order and its items in one query using
// LEFT JOIN + JSONB_AGG, avoiding a second round trip for the items.
func (r *OrderRepository) getOrder(ctx context.Context, where string, args ...any) (*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT
			o.id, o.order_number, o.user_id, o.status, o.subtotal, o.tax,
			o.shipping_fee, o.total, o.shipping_address, o.notes, o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'name', oi.name,
						'price', oi.price,
						'quantity', oi.quantity
					) ORDER BY oi.id
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE %s
		GROUP BY o.id`, where)

	var (
		o            domain.Order
		shippingJSON []byte
		itemsJSON    []byte
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.Subtotal,
		&o.Tax,
		&o.ShippingFee,
		&o.Total,
		&shippingJSON,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
		var addr domain.Address
		if err := json.Unmarshal(shippingJSON, &addr); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
		o.ShippingAddress = &addr
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}

	return &o, nil
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, order_number, user_id, status, subtotal, tax, shipping_fee, total, shipping_address, notes, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit, offset := pageBounds(filter.Page, filter.PerPage)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o            domain.Order
			shippingJSON []byte
		)

		if err := rows.Scan(
			&o.ID,
			&o.OrderNumber,
			&o.UserID,
			&o.Status,
			&o.Subtotal,
			&o.Tax,
			&o.ShippingFee,
			&o.Total,
			&shippingJSON,
			&o.Notes,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}

		if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
			var addr domain.Address
			if err := json.Unmarshal(shippingJSON, &addr); err != nil {
				return nil, 0, fmt.Errorf("unmarshal shipping address: %w", err)
			}
			o.ShippingAddress = &addr
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load items for all orders in a single query to avoid N+1.
	if len(orders) > 0 {
		orderIDs := make([]int64, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsQuery := `
			SELECT id, order_id, product_id, name, price, quantity
			FROM order_items
			WHERE order_id = ANY($1)
			ORDER BY id`

		itemRows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load order items: %w", err)
		}
		defer itemRows.Close()

		itemsByOrderID := make(map[int64][]domain.OrderItem, len(orders))
		for itemRows.Next() {
			var item domain.OrderItem
			if err := itemRows.Scan(
				&item.ID,
				&item.OrderID,
				&item.ProductID,
				&item.Name,
				&item.Price,
				&item.Quantity,
			); err != nil {
				return nil, 0, fmt.Errorf("scan order item: %w", err)
			}
			itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
		}
		if err := itemRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate batch order item rows: %w", err)
		}

		for i := range orders {
			if items, ok := itemsByOrderID[orders[i].ID]; ok {
				orders[i].Items = items
			} else {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// UpdateStatus changes the status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", strconv.FormatInt(id, 10))
	}

	return nil
}
