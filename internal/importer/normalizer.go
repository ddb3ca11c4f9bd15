package importer

import (
	"fmt"
	"strconv"
	"strings"

	"product-importer/internal/domain"
)

// RowError is a recoverable, row-level problem: the row is skipped and
// counted, and the job continues.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// Record is one normalized candidate product from a CSV row.
type Record struct {
	Line        int
	SKU         string
	Name        string
	Description *string
	Price       float64
}

// DedupKey returns the case-insensitive SKU used for last-occurrence-wins
// deduplication. The stored SKU keeps the winning row's original casing.
func (r Record) DedupKey() string {
	return domain.NormalizeSKU(r.SKU)
}

// Product converts the record to a catalog product. Identity and
// timestamps are assigned at write time.
func (r Record) Product() *domain.Product {
	return &domain.Product{
		SKU:         r.SKU,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		IsActive:    true,
	}
}

// Normalize turns a raw row into a Record. Empty sku or name yields a
// *RowError. Price problems never do: blank, unparseable, or negative
// values fall back to 0.00.
func Normalize(row RawRow) (Record, error) {
	sku := cleanField(row.Fields["sku"])
	name := cleanField(row.Fields["name"])

	if sku == "" {
		return Record{}, &RowError{Line: row.Line, Reason: "missing SKU"}
	}
	if name == "" {
		return Record{}, &RowError{Line: row.Line, Reason: "missing name"}
	}

	rec := Record{
		Line:  row.Line,
		SKU:   sku,
		Name:  name,
		Price: parsePrice(row.Fields["price"]),
	}

	// The original column may be spelled "description" or "desc".
	desc := cleanField(row.Fields["description"])
	if desc == "" {
		desc = cleanField(row.Fields["desc"])
	}
	if desc != "" {
		rec.Description = &desc
	}

	return rec, nil
}

// cleanField trims whitespace and stray surrounding quotes.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// parsePrice parses a non-negative decimal, tolerating currency symbols
// and thousands separators. Anything unusable becomes 0.00.
func parsePrice(raw string) float64 {
	s := cleanField(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	price, err := strconv.ParseFloat(s, 64)
	if err != nil || price < 0 {
		return 0
	}
	return price
}
