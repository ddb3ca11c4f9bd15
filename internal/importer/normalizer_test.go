package importer

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		wantSKU  string
		wantName string
		wantDesc string
		wantErr  bool
	}{
		{
			name:     "plain row",
			fields:   map[string]string{"sku": "ABC-1", "name": "Widget", "price": "9.99"},
			wantSKU:  "ABC-1",
			wantName: "Widget",
		},
		{
			name:     "whitespace and quotes trimmed",
			fields:   map[string]string{"sku": ` "ABC-2" `, "name": `'Widget'`},
			wantSKU:  "ABC-2",
			wantName: "Widget",
		},
		{
			name:     "description column",
			fields:   map[string]string{"sku": "A", "name": "W", "description": "a widget"},
			wantSKU:  "A",
			wantName: "W",
			wantDesc: "a widget",
		},
		{
			name:     "desc alias",
			fields:   map[string]string{"sku": "A", "name": "W", "desc": "short form"},
			wantSKU:  "A",
			wantName: "W",
			wantDesc: "short form",
		},
		{
			name:    "missing sku",
			fields:  map[string]string{"sku": "  ", "name": "Widget"},
			wantErr: true,
		},
		{
			name:    "missing name",
			fields:  map[string]string{"sku": "ABC-1", "name": ""},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Normalize(RawRow{Line: 7, Fields: tt.fields})
			if tt.wantErr {
				var rowErr *RowError
				if !errors.As(err, &rowErr) {
					t.Fatalf("Normalize error = %v, want *RowError", err)
				}
				if rowErr.Line != 7 {
					t.Errorf("RowError line = %d, want 7", rowErr.Line)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if rec.SKU != tt.wantSKU {
				t.Errorf("SKU = %q, want %q", rec.SKU, tt.wantSKU)
			}
			if rec.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", rec.Name, tt.wantName)
			}
			if tt.wantDesc == "" {
				if rec.Description != nil {
					t.Errorf("Description = %q, want nil", *rec.Description)
				}
			} else if rec.Description == nil || *rec.Description != tt.wantDesc {
				t.Errorf("Description = %v, want %q", rec.Description, tt.wantDesc)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"9.99", 9.99},
		{"$9.99", 9.99},
		{"1,299.50", 1299.5},
		{"$1,299.50", 1299.5},
		{" 42 ", 42},
		{"", 0},
		{"   ", 0},
		{"free", 0},
		{"-5.00", 0},
		{"$-1", 0},
	}

	for _, tt := range tests {
		if got := parsePrice(tt.raw); got != tt.want {
			t.Errorf("parsePrice(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestProperty_PriceParsingNeverNegative(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any input parses to a non-negative price", prop.ForAll(
		func(raw string) bool {
			return parsePrice(raw) >= 0
		},
		gen.AnyString(),
	))

	properties.Property("formatted non-negative prices round trip", prop.ForAll(
		func(cents int64) bool {
			price := float64(cents) / 100
			raw := "$" + strconv.FormatFloat(price, 'f', 2, 64)
			return math.Abs(parsePrice(raw)-price) < 1e-9
		},
		gen.Int64Range(0, 10_000_000),
	))

	properties.TestingRun(t)
}

func TestProperty_DedupKeyIgnoresCase(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("records whose SKUs differ only by case share a dedup key", prop.ForAll(
		func(sku string) bool {
			lower := Record{SKU: strings.ToLower(sku)}
			upper := Record{SKU: strings.ToUpper(sku)}
			return lower.DedupKey() == upper.DedupKey()
		},
		gen.RegexMatch(`[a-zA-Z0-9-]{1,20}`),
	))

	properties.TestingRun(t)
}
