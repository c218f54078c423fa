package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/repository"
	"github.com/electroshop/backend/internal/service"
	"github.com/electroshop/backend/pkg/httputil"
)

// ProductHandler handles HTTP requests for the catalog, both the public
// storefront reads and the admin CRUD surface.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// parsePagination reads page and per_page query parameters. Missing values
// default to zero; the service layer clamps them.
func parsePagination(w http.ResponseWriter, r *http.Request) (page, perPage int, ok bool) {
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "invalid page: " + raw,
			})
			return 0, 0, false
		}
		page = n
	}
	if raw := q.Get("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Success: false,
				Message: "invalid per_page: " + raw,
			})
			return 0, 0, false
		}
		perPage = n
	}
	return page, perPage, true
}

func parsePriceParam(w http.ResponseWriter, name, raw string) (*int64, bool) {
	if raw == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Success: false,
			Message: "invalid " + name + ": " + raw,
		})
		return nil, false
	}
	return &n, true
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// AdminList handles GET /api/admin/products. Unlike the storefront list it
// includes inactive products.
func (h *ProductHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.ProductFilter{
		CategorySlug:    q.Get("category"),
		Search:          q.Get("search"),
		IncludeInactive: includeInactive,
		SortBy:          q.Get("sort_by"),
		SortDesc:        q.Get("sort_order") == "desc",
		Page:            page,
		PerPage:         perPage,
	}

	if filter.MinPrice, ok = parsePriceParam(w, "min_price", q.Get("min_price")); !ok {
		return
	}
	if filter.MaxPrice, ok = parsePriceParam(w, "max_price", q.Get("max_price")); !ok {
		return
	}
	if raw := q.Get("featured"); raw != "" {
		featured := raw == "true"
		filter.Featured = &featured
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "",
		httputil.NewPaginatedData(products, total, pageOrDefault(page), perPageOrDefault(perPage)))
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "", product)
}

// GetBySlug handles GET /api/products/slug/{slug}
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "", product)
}

// ListCategories handles GET /api/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}

	httputil.WriteSuccess(w, http.StatusOK, "", categories)
}

// Create handles POST /api/admin/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	var req service.CreateProductInput
	if !decode(w, r, &req) {
		return
	}
	req.AdminID = admin.ID
	req.IPAddress = clientIP(r)

	product, err := h.service.CreateProduct(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "product created", product)
}

// Update handles PUT /api/admin/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req service.UpdateProductInput
	if !decode(w, r, &req) {
		return
	}
	req.AdminID = admin.ID
	req.IPAddress = clientIP(r)

	product, err := h.service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "product updated", product)
}

// Delete handles DELETE /api/admin/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), admin.ID, id, clientIP(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "product deleted", nil)
}

func pageOrDefault(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func perPageOrDefault(perPage int) int {
	if perPage < 1 {
		return 20
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}
