package http

import (
	"log/slog"
	"net/http"

	"github.com/electroshop/backend/internal/service"
	"github.com/electroshop/backend/pkg/httputil"
)

// AuditHandler serves the admin action trail.
type AuditHandler struct {
	service *service.AuditService
	logger  *slog.Logger
}

// NewAuditHandler creates a new audit HTTP handler.
func NewAuditHandler(svc *service.AuditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{service: svc, logger: logger}
}

// List handles GET /api/admin/audit-log
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	entries, total, err := h.service.ListEntries(r.Context(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "",
		httputil.NewPaginatedData(entries, total, pageOrDefault(page), perPageOrDefault(perPage)))
}
