package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/repository"
)

// writeAudit appends a best-effort audit entry. A failed write is logged and
// never fails the operation it describes.
func writeAudit(
	ctx context.Context,
	audit repository.AuditRepository,
	logger *slog.Logger,
	adminID int64,
	action, entity string,
	entityID int64,
	ipAddress string,
	details map[string]any,
) {
	entry := &domain.AuditEntry{
		AdminID:   &adminID,
		Action:    action,
		Entity:    entity,
		EntityID:  &entityID,
		IPAddress: ipAddress,
		CreatedAt: time.Now().UTC(),
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}

	if err := audit.Insert(ctx, entry); err != nil {
		logger.WarnContext(ctx, "failed to write audit entry",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

// AuditService exposes the audit trail to the back office.
type AuditService struct {
	audit  repository.AuditRepository
	logger *slog.Logger
}

// NewAuditService creates a new audit service.
func NewAuditService(audit repository.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{audit: audit, logger: logger}
}

// ListEntries returns audit entries, newest first.
func (s *AuditService) ListEntries(ctx context.Context, page, perPage int) ([]domain.AuditEntry, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return s.audit.List(ctx, page, perPage)
}
