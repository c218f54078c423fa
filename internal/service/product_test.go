package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/repository"
	apperrors "github.com/electroshop/backend/pkg/errors"
)

func newProductService() (*ProductService, *mockProductRepository, *mockAuditRepository) {
	products := new(mockProductRepository)
	audit := new(mockAuditRepository)
	return NewProductService(products, audit, newTestLogger()), products, audit
}

func TestCreateProduct_GeneratesSlug(t *testing.T) {
	svc, products, audit := newProductService()
	ctx := context.Background()

	products.On("Create", ctx, mock.AnythingOfType("*domain.Product")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Product).ID = 10
		}).
		Return(nil)
	audit.On("Insert", ctx, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:    "Mechanical Keyboard MK-II",
		Price:   12999,
		Stock:   5,
		AdminID: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10), product.ID)
	assert.Equal(t, "mechanical-keyboard-mk-ii", product.Slug)
	assert.True(t, product.IsActive)

	entry := audit.Calls[0].Arguments.Get(1).(*domain.AuditEntry)
	assert.Equal(t, domain.AuditActionCreateProduct, entry.Action)
}

func TestUpdateProduct_RenameRegeneratesSlug(t *testing.T) {
	svc, products, audit := newProductService()
	ctx := context.Background()

	existing := keyboard()
	products.On("GetByID", ctx, int64(1)).Return(existing, nil)
	products.On("Update", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)
	audit.On("Insert", ctx, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)

	name := "Ergonomic Keyboard"
	product, err := svc.UpdateProduct(ctx, 1, UpdateProductInput{Name: &name, AdminID: 3})

	require.NoError(t, err)
	assert.Equal(t, "Ergonomic Keyboard", product.Name)
	assert.Equal(t, "ergonomic-keyboard", product.Slug)
	// Untouched fields survive.
	assert.Equal(t, int64(12999), product.Price)
}

func TestUpdateProduct_PartialUpdate(t *testing.T) {
	svc, products, audit := newProductService()
	ctx := context.Background()

	existing := keyboard()
	products.On("GetByID", ctx, int64(1)).Return(existing, nil)
	products.On("Update", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)
	audit.On("Insert", ctx, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)

	stock := 0
	product, err := svc.UpdateProduct(ctx, 1, UpdateProductInput{Stock: &stock, AdminID: 3})

	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)
	assert.Equal(t, "Mechanical Keyboard", product.Name)
	assert.Equal(t, "mechanical-keyboard", product.Slug)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	svc, products, _ := newProductService()
	ctx := context.Background()

	products.On("SoftDelete", ctx, int64(99)).Return(apperrors.ErrNotFound)

	err := svc.DeleteProduct(ctx, 3, 99, "")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListProducts_ClampsPagination(t *testing.T) {
	svc, products, _ := newProductService()
	ctx := context.Background()

	products.On("List", ctx, mock.MatchedBy(func(filter repository.ProductFilter) bool {
		return filter.Page == 1 && filter.PerPage == 100
	})).Return([]domain.Product{}, 0, nil)

	_, _, err := svc.ListProducts(ctx, repository.ProductFilter{Page: -3, PerPage: 5000})

	require.NoError(t, err)
	products.AssertExpectations(t)
}

func TestListProducts_InvalidPriceRange(t *testing.T) {
	svc, _, _ := newProductService()

	minPrice := int64(5000)
	maxPrice := int64(100)
	_, _, err := svc.ListProducts(context.Background(), repository.ProductFilter{
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestListCategories(t *testing.T) {
	svc, products, _ := newProductService()
	ctx := context.Background()

	products.On("ListCategories", ctx).Return([]domain.Category{
		{ID: 1, Name: "Accessories", Slug: "accessories"},
		{ID: 2, Name: "Keyboards", Slug: "keyboards"},
	}, nil)

	categories, err := svc.ListCategories(ctx)

	require.NoError(t, err)
	assert.Len(t, categories, 2)
}
