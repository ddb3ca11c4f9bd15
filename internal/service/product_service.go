package service

import (
	"context"
	"fmt"
	"time"

	"product-importer/internal/domain"
	"product-importer/internal/repository"

	"github.com/google/uuid"
)

// EventPublisher receives lifecycle events after the producing write has
// committed. Publishing can never fail the mutation.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// CreateProductParams are the attributes of a new product.
type CreateProductParams struct {
	SKU         string
	Name        string
	Description *string
	Price       float64
	IsActive    bool
}

// UpdateProductParams are partial updates; nil fields are left unchanged.
type UpdateProductParams struct {
	SKU         *string
	Name        *string
	Description *string
	Price       *float64
	IsActive    *bool
}

// ProductService defines the interface for product business logic. Direct
// CRUD mutations publish the corresponding lifecycle event, which is the
// only coupling the event core requires from this surface.
type ProductService interface {
	Create(ctx context.Context, params CreateProductParams) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateProductParams) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter repository.ProductFilter, page, pageSize int) ([]*domain.Product, int, error)
}

type productService struct {
	products  repository.ProductRepository
	publisher EventPublisher
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository, publisher EventPublisher) ProductService {
	return &productService{
		products:  products,
		publisher: publisher,
	}
}

// Create inserts a new product and publishes ProductCreated.
func (s *productService) Create(ctx context.Context, params CreateProductParams) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		SKU:         params.SKU,
		Name:        params.Name,
		Description: params.Description,
		Price:       params.Price,
		IsActive:    params.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		if err == repository.ErrDuplicateSKU {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.publisher.Publish(ctx, domain.NewEvent(domain.EventProductCreated, map[string]any{
		"product_id": product.ID.String(),
		"sku":        product.SKU,
		"name":       product.Name,
		"action":     "create",
	}))

	return product, nil
}

// Update applies the non-nil fields and publishes ProductUpdated.
func (s *productService) Update(ctx context.Context, id uuid.UUID, params UpdateProductParams) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.SKU != nil && domain.NormalizeSKU(*params.SKU) != product.DedupKey() {
		existing, err := s.products.FindBySKU(ctx, *params.SKU)
		if err != nil && err != repository.ErrProductNotFound {
			return nil, fmt.Errorf("failed to check SKU: %w", err)
		}
		if existing != nil {
			return nil, repository.ErrDuplicateSKU
		}
	}

	if params.SKU != nil {
		product.SKU = *params.SKU
	}
	if params.Name != nil {
		product.Name = *params.Name
	}
	if params.Description != nil {
		product.Description = params.Description
	}
	if params.Price != nil {
		product.Price = *params.Price
	}
	if params.IsActive != nil {
		product.IsActive = *params.IsActive
	}
	product.UpdatedAt = time.Now()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, domain.NewEvent(domain.EventProductUpdated, map[string]any{
		"product_id": product.ID.String(),
		"sku":        product.SKU,
		"name":       product.Name,
		"action":     "update",
	}))

	return product, nil
}

// Delete removes a product and publishes ProductDeleted.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.Publish(ctx, domain.NewEvent(domain.EventProductDeleted, map[string]any{
		"product_id": product.ID.String(),
		"sku":        product.SKU,
		"name":       product.Name,
		"action":     "delete",
	}))

	return nil
}

// DeleteAll removes the whole catalog in one atomic operation and returns
// the number of removed products. No per-product events are published.
func (s *productService) DeleteAll(ctx context.Context) (int, error) {
	count, err := s.products.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete all products: %w", err)
	}
	return count, nil
}

// GetByID retrieves a product by ID.
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// List retrieves products with filtering and pagination.
func (s *productService) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int) ([]*domain.Product, int, error) {
	return s.products.List(ctx, filter, page, pageSize)
}
