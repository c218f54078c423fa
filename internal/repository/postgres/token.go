package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/pkg/database"
	apperrors "github.com/electroshop/backend/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	pool database.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(pool database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

// Create stores a new refresh token.
func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (principal_id, kind, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		t.PrincipalID,
		t.Kind,
		t.TokenHash,
		t.ExpiresAt,
		t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("refresh token already stored")
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token record by its hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, principal_id, kind, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1`

	var t domain.RefreshToken
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID,
		&t.PrincipalID,
		&t.Kind,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &t, nil
}

// Rotate atomically deletes the old token row and inserts the next one. A
// replayed token is detected when the delete matches no row, in which case
// nothing is inserted and ErrNotFound is returned.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldHash string, next *domain.RefreshToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, oldHash)
	if err != nil {
		return fmt.Errorf("delete rotated token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	query := `
		INSERT INTO refresh_tokens (principal_id, kind, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err = tx.QueryRow(ctx, query,
		next.PrincipalID,
		next.Kind,
		next.TokenHash,
		next.ExpiresAt,
		next.CreatedAt,
	).Scan(&next.ID)
	if err != nil {
		return fmt.Errorf("insert rotated token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Delete removes a token by hash. Deleting an absent token is not an error,
// which makes logout idempotent.
func (r *RefreshTokenRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteByPrincipal removes every token held by the given principal.
func (r *RefreshTokenRepository) DeleteByPrincipal(ctx context.Context, principalID int64, kind string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE principal_id = $1 AND kind = $2`, principalID, kind)
	if err != nil {
		return fmt.Errorf("delete refresh tokens for principal: %w", err)
	}
	return nil
}
