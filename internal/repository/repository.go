package repository

import (
	"context"

	"github.com/electroshop/backend/internal/domain"
)

// UserFilter narrows the admin user directory listing.
type UserFilter struct {
	Search   string
	IsActive *bool
	Page     int
	PerPage  int
}

// UserRepository defines the interface for customer account persistence.
type UserRepository interface {
	// Create inserts a new user and fills in the generated ID.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies the user's profile fields.
	Update(ctx context.Context, user *domain.User) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// SetActive toggles the account's active flag.
	SetActive(ctx context.Context, id int64, active bool) error

	// SoftDelete deactivates the account and clears personal data linkage.
	SoftDelete(ctx context.Context, id int64) error

	// ListWithStats returns users with order aggregates for the admin directory.
	ListWithStats(ctx context.Context, filter UserFilter) ([]domain.UserWithStats, int, error)
}

// AdminRepository defines the interface for back-office account persistence.
type AdminRepository interface {
	// Create inserts a new admin and fills in the generated ID.
	Create(ctx context.Context, admin *domain.Admin) error

	// GetByID retrieves an admin by ID.
	GetByID(ctx context.Context, id int64) (*domain.Admin, error)

	// GetByEmail retrieves an admin by email address.
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)

	// CountByRole returns how many admins hold the given role.
	CountByRole(ctx context.Context, role string) (int, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// UpdateTwoFactor stores the TOTP secret and enabled flag.
	UpdateTwoFactor(ctx context.Context, id int64, secret string, enabled bool) error
}

// RefreshTokenRepository defines the interface for refresh token persistence.
// Tokens are stored as SHA-256 hashes; the raw token never touches the store.
type RefreshTokenRepository interface {
	// Create stores a new refresh token.
	Create(ctx context.Context, token *domain.RefreshToken) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Rotate atomically deletes the old token row and inserts the next one.
	// Returns ErrNotFound if the old token is no longer present, which is how
	// a replayed (already rotated) token is detected.
	Rotate(ctx context.Context, oldHash string, next *domain.RefreshToken) error

	// Delete removes a token by hash. Deleting an absent token is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteByPrincipal removes every token held by the given principal.
	DeleteByPrincipal(ctx context.Context, principalID int64, kind string) error
}

// ProductFilter narrows the catalog listing.
type ProductFilter struct {
	CategorySlug    string
	Search          string
	MinPrice        *int64
	MaxPrice        *int64
	Featured        *bool
	IncludeInactive bool
	SortBy          string
	SortDesc        bool
	Page            int
	PerPage         int
}

// ProductRepository defines the interface for catalog persistence.
type ProductRepository interface {
	// Create inserts a new product and fills in the generated ID.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by ID regardless of active state.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetActiveByID retrieves a product that is active, or ErrNotFound.
	GetActiveByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetBySlug retrieves an active product by slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// List returns products matching the filter with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Update modifies an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// SoftDelete marks a product inactive.
	SoftDelete(ctx context.Context, id int64) error

	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID  *int64
	Status  *string
	Page    int
	PerPage int
}

// OrderRepository defines the interface for order persistence.
type OrderRepository interface {
	// Create inserts the order with its line items and decrements product
	// stock, all within a single transaction. Stock never goes negative: a
	// line whose guarded decrement matches no row fails the whole order with
	// ErrOutOfStock or ErrNotFound. A duplicate order number fails with
	// ErrConflict so the caller can retry with a fresh number.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id int64) (*domain.Order, error)

	// GetByIDForUser retrieves an order only if it belongs to the given user.
	// A foreign order is reported as ErrNotFound, not ErrForbidden.
	GetByIDForUser(ctx context.Context, id, userID int64) (*domain.Order, error)

	// List returns orders matching the filter with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus changes the status of an order.
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// ReportRepository defines the interface for back-office aggregate queries.
type ReportRepository interface {
	// DashboardStats returns the headline counters: active users, active
	// products, orders overall and pending, revenue excluding cancelled and
	// refunded orders, and products whose stock fell below the threshold.
	DashboardStats(ctx context.Context, lowStockThreshold int) (*domain.DashboardStats, error)

	// RecentOrders returns the latest orders with buyer identity attached.
	RecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error)

	// MonthlyRevenue returns per-month revenue and order counts over the last
	// months, oldest first, excluding cancelled and refunded orders.
	MonthlyRevenue(ctx context.Context, months int) ([]domain.MonthlyRevenue, error)
}

// AuditRepository defines the interface for the append-only audit trail.
type AuditRepository interface {
	// Insert appends an audit entry.
	Insert(ctx context.Context, entry *domain.AuditEntry) error

	// List returns audit entries, newest first.
	List(ctx context.Context, page, perPage int) ([]domain.AuditEntry, int, error)
}
