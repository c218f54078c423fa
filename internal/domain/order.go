package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Order status constants.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Pricing constants. All amounts are cents.
const (
	TaxRatePercent        = 8
	FreeShippingThreshold = 50000
	StandardShippingFee   = 999
)

// Order represents a customer order. All money fields are cents.
type Order struct {
	ID              int64       `json:"id"`
	OrderNumber     string      `json:"order_number"`
	UserID          int64       `json:"user_id"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items"`
	Subtotal        int64       `json:"subtotal"`
	Tax             int64       `json:"tax"`
	ShippingFee     int64       `json:"shipping_fee"`
	Total           int64       `json:"total"`
	ShippingAddress *Address    `json:"shipping_address,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem is a line item carrying the product name and price captured at
// order time, so later catalog edits do not rewrite history.
type OrderItem struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// LineTotal returns the total price for this line item.
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Address represents the shipping address captured with an order.
type Address struct {
	FullName    string `json:"full_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
}

// ComputeTax returns the tax on the given subtotal, rounded half-up to whole
// cents. Rounding happens exactly once.
func ComputeTax(subtotal int64) int64 {
	return (subtotal*TaxRatePercent + 50) / 100
}

// ComputeShippingFee returns the flat shipping fee, waived at or above the
// free-shipping threshold.
func ComputeShippingFee(subtotal int64) int64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return StandardShippingFee
}

// ComputeTotals fills in Subtotal, Tax, ShippingFee, and Total from the
// order's items.
func (o *Order) ComputeTotals() {
	var subtotal int64
	for i := range o.Items {
		subtotal += o.Items[i].LineTotal()
	}
	o.Subtotal = subtotal
	o.Tax = ComputeTax(subtotal)
	o.ShippingFee = ComputeShippingFee(subtotal)
	o.Total = subtotal + o.Tax + o.ShippingFee
}

const orderNumberSuffixLen = 4

// NewOrderNumber generates an order number of the form
// ORD-<millis base36>-<4 random base36 chars>, upper-cased. Uniqueness is
// enforced by the store; callers retry once on collision.
func NewOrderNumber(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffix := make([]byte, orderNumberSuffixLen)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			// crypto/rand failing means the platform RNG is broken; fall back
			// to a time-derived character rather than aborting the order.
			suffix[i] = alphabet[now.UnixNano()%int64(len(alphabet))]
			continue
		}
		suffix[i] = alphabet[n.Int64()]
	}

	return fmt.Sprintf("ORD-%s-%s", ts, suffix)
}
