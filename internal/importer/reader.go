package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrMissingColumns is returned when the header lacks a required
	// column. It fails the whole job before any row is processed.
	ErrMissingColumns = errors.New("CSV missing required columns")

	// ErrEmptyFile is returned when the stream contains no header row.
	ErrEmptyFile = errors.New("CSV file is empty")
)

// requiredColumns must all be present in the header, case-insensitively.
var requiredColumns = []string{"sku", "name"}

// RawRow is one data row keyed by the cleaned header column names.
// Line is 1-based and counts data rows, excluding the header.
type RawRow struct {
	Line   int
	Fields map[string]string
}

// Reader streams CSV rows from an io.Reader without materializing the
// file. It validates the header up front and yields rows forward-only;
// column-count mismatches against the header are left to the caller as
// row-level concerns, never fatal.
type Reader struct {
	csv    *csv.Reader
	header []string
	line   int
}

// NewReader wraps r, reads and validates the header, and returns a Reader
// positioned at the first data row.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, 64*1024))
	// Rows may have more or fewer fields than the header.
	cr.FieldsPerRecord = -1

	rawHeader, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	header := make([]string, len(rawHeader))
	for i, col := range rawHeader {
		header[i] = cleanHeaderColumn(col)
	}

	if missing := missingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: found %v, required %v", ErrMissingColumns, header, requiredColumns)
	}

	return &Reader{csv: cr, header: header}, nil
}

// Header returns the cleaned, lower-cased column names.
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next data row, or io.EOF when the stream is exhausted.
// A row with fewer fields than the header leaves the missing columns
// empty; extra fields are dropped.
func (r *Reader) Next() (RawRow, error) {
	record, err := r.csv.Read()
	if err == io.EOF {
		return RawRow{}, io.EOF
	}
	if err != nil {
		// Surface malformed rows to the caller as row-level errors
		// but keep the stream readable.
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			r.line++
			return RawRow{Line: r.line}, &RowError{Line: r.line, Reason: parseErr.Err.Error()}
		}
		return RawRow{}, fmt.Errorf("failed to read CSV row: %w", err)
	}

	r.line++
	fields := make(map[string]string, len(r.header))
	for i, col := range r.header {
		if i < len(record) {
			fields[col] = record[i]
		}
	}

	return RawRow{Line: r.line, Fields: fields}, nil
}

// cleanHeaderColumn strips the UTF-8 BOM, surrounding whitespace and
// stray quotes, and lower-cases the name.
func cleanHeaderColumn(col string) string {
	col = strings.TrimPrefix(col, "\uFEFF")
	col = strings.TrimSpace(col)
	col = strings.Trim(col, `"'`)
	return strings.ToLower(col)
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	var missing []string
	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
