package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/pkg/database"
	apperrors "github.com/electroshop/backend/pkg/errors"
)

// AdminRepository implements repository.AdminRepository using PostgreSQL.
// Permissions are stored as discrete boolean columns so they can be indexed
// and queried without JSON extraction.
type AdminRepository struct {
	pool database.DBTX
}

// NewAdminRepository creates a new PostgreSQL-backed admin repository.
func NewAdminRepository(pool database.DBTX) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// Create inserts a new admin and fills in the generated ID.
func (r *AdminRepository) Create(ctx context.Context, a *domain.Admin) error {
	query := `
		INSERT INTO admins (email, password_hash, full_name, role, perm_products, perm_orders, perm_users, perm_reports,
		                    two_factor_secret, two_factor_enabled, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		a.Email,
		a.PasswordHash,
		a.FullName,
		a.Role,
		a.Permissions.Products,
		a.Permissions.Orders,
		a.Permissions.Users,
		a.Permissions.Reports,
		a.TwoFactorSecret,
		a.TwoFactorEnabled,
		a.IsActive,
		a.CreatedAt,
		a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("admin", "email", a.Email)
		}
		return fmt.Errorf("insert admin: %w", err)
	}

	return nil
}

// GetByID retrieves an admin by ID.
func (r *AdminRepository) GetByID(ctx context.Context, id int64) (*domain.Admin, error) {
	query := `
		SELECT id, email, password_hash, full_name, role, perm_products, perm_orders, perm_users, perm_reports,
		       two_factor_secret, two_factor_enabled, is_active, created_at, updated_at
		FROM admins
		WHERE id = $1`

	return r.scanAdmin(ctx, query, id)
}

// GetByEmail retrieves an admin by email address.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `
		SELECT id, email, password_hash, full_name, role, perm_products, perm_orders, perm_users, perm_reports,
		       two_factor_secret, two_factor_enabled, is_active, created_at, updated_at
		FROM admins
		WHERE email = $1`

	return r.scanAdmin(ctx, query, email)
}

// CountByRole returns how many admins hold the given role.
func (r *AdminRepository) CountByRole(ctx context.Context, role string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins WHERE role = $1`, role).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count admins by role: %w", err)
	}
	return count, nil
}

// UpdatePassword replaces the stored password hash.
func (r *AdminRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE admins
		SET password_hash = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("admin", strconv.FormatInt(id, 10))
	}

	return nil
}

// UpdateTwoFactor stores the TOTP secret and enabled flag.
func (r *AdminRepository) UpdateTwoFactor(ctx context.Context, id int64, secret string, enabled bool) error {
	query := `
		UPDATE admins
		SET two_factor_secret = $1, two_factor_enabled = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.pool.Exec(ctx, query, secret, enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update admin two factor: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("admin", strconv.FormatInt(id, 10))
	}

	return nil
}

// scanAdmin is a helper that executes a query expected to return a single admin row.
func (r *AdminRepository) scanAdmin(ctx context.Context, query string, args ...any) (*domain.Admin, error) {
	var a domain.Admin

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.FullName,
		&a.Role,
		&a.Permissions.Products,
		&a.Permissions.Orders,
		&a.Permissions.Users,
		&a.Permissions.Reports,
		&a.TwoFactorSecret,
		&a.TwoFactorEnabled,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan admin: %w", err)
	}

	return &a, nil
}
