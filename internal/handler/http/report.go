package http

import (
	"log/slog"
	"net/http"

	"github.com/electroshop/backend/internal/service"
	"github.com/electroshop/backend/pkg/httputil"
)

// ReportHandler serves back-office aggregates.
type ReportHandler struct {
	service *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new report HTTP handler.
func NewReportHandler(svc *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{service: svc, logger: logger}
}

// Dashboard handles GET /api/admin/dashboard
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.Dashboard(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "", dashboard)
}
