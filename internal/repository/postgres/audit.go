package postgres

import (
	"context"
	"fmt"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/pkg/database"
)

// AuditRepository implements repository.AuditRepository using PostgreSQL.
type AuditRepository struct {
	pool database.DBTX
}

// NewAuditRepository creates a new PostgreSQL-backed audit repository.
func NewAuditRepository(pool database.DBTX) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends an entry to the audit log.
func (r *AuditRepository) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (admin_id, action, entity, entity_id, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		entry.AdminID,
		entry.Action,
		entry.Entity,
		entry.EntityID,
		entry.Details,
		entry.IPAddress,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// List returns the most recent audit entries with the total count.
func (r *AuditRepository) List(ctx context.Context, page, perPage int) ([]domain.AuditEntry, int, error) {
	query := `
		SELECT id, admin_id, action, entity, entity_id, details, ip_address, created_at,
			   count(*) OVER() AS total_count
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	limit, offset := pageBounds(page, perPage)

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var totalCount int
	entries := make([]domain.AuditEntry, 0)

	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(
			&e.ID,
			&e.AdminID,
			&e.Action,
			&e.Entity,
			&e.EntityID,
			&e.Details,
			&e.IPAddress,
			&e.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit rows: %w", err)
	}

	return entries, totalCount, nil
}
