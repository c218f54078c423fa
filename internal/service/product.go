package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/repository"
	apperrors "github.com/electroshop/backend/pkg/errors"
	"github.com/electroshop/backend/pkg/slug"
)

// ProductService implements catalog queries and back-office catalog
// management.
type ProductService struct {
	products repository.ProductRepository
	audit    repository.AuditRepository
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository, audit repository.AuditRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		products: products,
		audit:    audit,
		logger:   logger,
	}
}

// GetProduct retrieves an active product by ID for the storefront.
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.products.GetActiveByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// GetProductBySlug retrieves an active product by slug for the storefront.
func (s *ProductService) GetProductBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	product, err := s.products.GetBySlug(ctx, productSlug)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return product, nil
}

// ListProducts returns a filtered, paginated slice of the catalog.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, apperrors.InvalidInput("min_price cannot exceed max_price")
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

// ListCategories returns all catalog categories.
func (s *ProductService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.products.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CreateProductInput holds the parameters for adding a catalog entry.
type CreateProductInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	CategoryID  *int64 `json:"category_id" validate:"omitempty,gt=0"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=500"`
	IsFeatured  bool   `json:"is_featured"`
	AdminID     int64  `json:"-"`
	IPAddress   string `json:"-"`
}

// CreateProduct adds a catalog entry with a slug derived from the name.
func (s *ProductService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	product := &domain.Product{
		Name:        input.Name,
		Slug:        slug.Generate(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		CategoryID:  input.CategoryID,
		ImageURL:    input.ImageURL,
		IsFeatured:  input.IsFeatured,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	writeAudit(ctx, s.audit, s.logger, input.AdminID, domain.AuditActionCreateProduct, "product", product.ID, input.IPAddress, map[string]any{
		"name":  product.Name,
		"price": product.Price,
	})

	s.logger.InfoContext(ctx, "product created",
		slog.Int64("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// UpdateProductInput holds the parameters for editing a catalog entry.
// Pointer fields distinguish "leave unchanged" from explicit values.
type UpdateProductInput struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Price       *int64  `json:"price" validate:"omitempty,gt=0"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	CategoryID  *int64  `json:"category_id" validate:"omitempty,gt=0"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url,max=500"`
	IsFeatured  *bool   `json:"is_featured"`
	IsActive    *bool   `json:"is_active"`
	AdminID     int64   `json:"-"`
	IPAddress   string  `json:"-"`
}

// UpdateProduct edits a catalog entry. Renaming regenerates the slug.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		product.Name = *input.Name
		product.Slug = slug.Generate(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.CategoryID != nil {
		product.CategoryID = input.CategoryID
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	writeAudit(ctx, s.audit, s.logger, input.AdminID, domain.AuditActionUpdateProduct, "product", product.ID, input.IPAddress, nil)

	s.logger.InfoContext(ctx, "product updated", slog.Int64("product_id", product.ID))

	return product, nil
}

// DeleteProduct retires a catalog entry. The row survives so existing order
// items keep their reference; the product simply stops being sellable.
func (s *ProductService) DeleteProduct(ctx context.Context, adminID, id int64, ipAddress string) error {
	if err := s.products.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	writeAudit(ctx, s.audit, s.logger, adminID, domain.AuditActionDeleteProduct, "product", id, ipAddress, nil)

	s.logger.InfoContext(ctx, "product deleted", slog.Int64("product_id", id))

	return nil
}
