package importer

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewReader_HeaderValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:  "minimal required header",
			input: "sku,name\n",
		},
		{
			name:  "full header with extras",
			input: "sku,name,description,price,extra\n",
		},
		{
			name:  "mixed case and whitespace",
			input: " SKU , Name ,Price\n",
		},
		{
			name:  "utf8 bom on first column",
			input: "\uFEFFsku,name\n",
		},
		{
			name:  "quoted column names",
			input: `"sku","name","price"` + "\n",
		},
		{
			name:    "missing name column",
			input:   "sku,price,description\n",
			wantErr: ErrMissingColumns,
		},
		{
			name:    "missing sku column",
			input:   "name,price\n",
			wantErr: ErrMissingColumns,
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: ErrEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.input))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewReader returned unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewReader error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReader_Next(t *testing.T) {
	input := "sku,name,price\n" +
		"A-1,Widget,9.99\n" +
		"A-2,Gadget\n" +
		"A-3,Gizmo,5.00,surplus\n"

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if row.Line != 1 {
		t.Errorf("first row line = %d, want 1", row.Line)
	}
	if row.Fields["sku"] != "A-1" || row.Fields["name"] != "Widget" || row.Fields["price"] != "9.99" {
		t.Errorf("unexpected fields: %v", row.Fields)
	}

	// Short row leaves trailing columns absent
	row, err = r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, ok := row.Fields["price"]; ok {
		t.Errorf("short row should not carry a price field, got %q", row.Fields["price"])
	}

	// Long row drops the surplus
	row, err = r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if len(row.Fields) != 3 {
		t.Errorf("long row fields = %v, want exactly the header columns", row.Fields)
	}

	if _, err = r.Next(); err != io.EOF {
		t.Fatalf("Next after last row = %v, want io.EOF", err)
	}
}

func TestReader_MalformedRowIsRowLevel(t *testing.T) {
	input := "sku,name\n" +
		"A-1,good\n" +
		"A-2,bad\"quote\n" +
		"A-3,also good\n"

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	if _, err := r.Next(); err != nil {
		t.Fatalf("first row failed: %v", err)
	}

	_, err = r.Next()
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("malformed row error = %v, want *RowError", err)
	}
	if rowErr.Line != 2 {
		t.Errorf("RowError line = %d, want 2", rowErr.Line)
	}

	// The stream stays readable past the bad row
	row, err := r.Next()
	if err != nil {
		t.Fatalf("row after malformed one failed: %v", err)
	}
	if row.Fields["sku"] != "A-3" {
		t.Errorf("row after malformed one sku = %q, want A-3", row.Fields["sku"])
	}
}
