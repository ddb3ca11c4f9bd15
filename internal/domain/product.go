package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product represents a product in the catalog. SKU uniqueness is enforced
// case-insensitively; the stored value keeps its original casing.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SKU         string    `json:"sku" db:"sku"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DedupKey returns the case-insensitive identity used for SKU comparison.
func (p *Product) DedupKey() string {
	return NormalizeSKU(p.SKU)
}

// NormalizeSKU lower-cases a SKU for case-insensitive comparison.
func NormalizeSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}
