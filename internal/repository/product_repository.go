package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"product-importer/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSKU    = errors.New("product with this SKU already exists")
)

// ProductFilter narrows List results. Zero values mean "no filter".
type ProductFilter struct {
	SKU      string
	Name     string
	IsActive *bool
}

// BatchResult reports the outcome of one committed upsert batch.
type BatchResult struct {
	Created []*domain.Product
	Updated []*domain.Product
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter, page, pageSize int) ([]*domain.Product, int, error)
	UpsertBatch(ctx context.Context, products []*domain.Product) (*BatchResult, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product. SKU collisions (case-insensitive) are
// reported as ErrDuplicateSKU.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	existing, err := r.FindBySKU(ctx, product.SKU)
	if err != nil && err != ErrProductNotFound {
		return fmt.Errorf("failed to check existing SKU: %w", err)
	}
	if existing != nil {
		return ErrDuplicateSKU
	}

	query := `
		INSERT INTO products (id, sku, name, description, price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Name,
		product.Description,
		product.Price,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product in place. Identity and created_at
// are never modified.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET sku = $2, name = $3, description = $4, price = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Name,
		product.Description,
		product.Price,
		product.IsActive,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// DeleteAll removes every product in a single transaction so a concurrent
// reader sees either the full catalog or none of it. Returns the number of
// deleted rows.
func (r *productRepository) DeleteAll(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk delete: %w", err)
	}

	return count, nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, sku, name, description, price, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindBySKU retrieves a product by case-insensitive SKU match.
func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	query := `
		SELECT id, sku, name, description, price, is_active, created_at, updated_at
		FROM products
		WHERE lower(sku) = lower($1)
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, sku).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by SKU: %w", err)
	}

	return product, nil
}

// List retrieves products with optional filtering and pagination
func (r *productRepository) List(ctx context.Context, filter ProductFilter, page, pageSize int) ([]*domain.Product, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.SKU != "" {
		conditions = append(conditions, fmt.Sprintf("sku ILIKE $%d", argIndex))
		args = append(args, "%"+filter.SKU+"%")
		argIndex++
	}
	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Name+"%")
		argIndex++
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total products
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT id, sku, name, description, price, is_active, created_at, updated_at
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.IsActive,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

// UpsertBatch applies one batch of import records atomically: every row in
// the batch commits or none does. Records matching an existing product by
// case-insensitive SKU update that row in place, preserving its identity,
// created_at, and the originally stored SKU casing. The returned BatchResult
// is only valid once the transaction has committed.
func (r *productRepository) UpsertBatch(ctx context.Context, products []*domain.Product) (*BatchResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	selectStmt, err := tx.PrepareContext(ctx, `
		SELECT id, sku, created_at FROM products WHERE lower(sku) = lower($1)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare SKU lookup: %w", err)
	}
	defer selectStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, sku, name, description, price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insertStmt.Close()

	updateStmt, err := tx.PrepareContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare update: %w", err)
	}
	defer updateStmt.Close()

	result := &BatchResult{}
	now := time.Now()

	for _, p := range products {
		var (
			existingID        uuid.UUID
			existingSKU       string
			existingCreatedAt time.Time
		)
		err := selectStmt.QueryRowContext(ctx, p.SKU).Scan(&existingID, &existingSKU, &existingCreatedAt)
		switch {
		case err == sql.ErrNoRows:
			p.ID = uuid.New()
			p.CreatedAt = now
			p.UpdatedAt = now
			if _, err := insertStmt.ExecContext(ctx,
				p.ID, p.SKU, p.Name, p.Description, p.Price, p.IsActive, p.CreatedAt, p.UpdatedAt,
			); err != nil {
				return nil, fmt.Errorf("failed to insert product %q: %w", p.SKU, err)
			}
			result.Created = append(result.Created, p)
		case err != nil:
			return nil, fmt.Errorf("failed to look up SKU %q: %w", p.SKU, err)
		default:
			// The stored SKU keeps the casing of the first insert.
			p.ID = existingID
			p.SKU = existingSKU
			p.CreatedAt = existingCreatedAt
			p.UpdatedAt = now
			if _, err := updateStmt.ExecContext(ctx,
				p.ID, p.Name, p.Description, p.Price, p.IsActive, p.UpdatedAt,
			); err != nil {
				return nil, fmt.Errorf("failed to update product %q: %w", p.SKU, err)
			}
			result.Updated = append(result.Updated, p)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	return result, nil
}
