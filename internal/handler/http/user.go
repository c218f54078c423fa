package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/electroshop/backend/internal/repository"
	"github.com/electroshop/backend/internal/service"
	"github.com/electroshop/backend/pkg/httputil"
)

// UserHandler handles HTTP requests for the customer profile and the admin
// user directory.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// SetUserActiveRequest is the JSON request body for toggling an account.
type SetUserActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	httputil.WriteSuccess(w, http.StatusOK, "", user)
}

// UpdateProfile handles PUT /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req service.UpdateProfileInput
	if !decode(w, r, &req) {
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "profile updated", updated)
}

// List handles GET /api/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.UserFilter{
		Search:  q.Get("search"),
		Page:    page,
		PerPage: perPage,
	}
	if raw := q.Get("is_active"); raw != "" {
		active := raw == "true"
		filter.IsActive = &active
	}

	users, total, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "",
		httputil.NewPaginatedData(users, total, pageOrDefault(page), perPageOrDefault(perPage)))
}

// Get handles GET /api/admin/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "", user)
}

// SetActive handles PUT /api/admin/users/{id}/active. Deactivating an
// account also revokes its refresh tokens.
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SetUserActiveRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.SetUserActive(r.Context(), admin.ID, id, *req.IsActive, clientIP(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "user updated", nil)
}

// Delete handles DELETE /api/admin/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), admin.ID, id, clientIP(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "user deleted", nil)
}
