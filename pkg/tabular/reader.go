package tabular

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Supported upload extensions.
const (
	ExtXLSX = ".xlsx"
	ExtCSV  = ".csv"
)

// ErrUnsupportedFormat is returned for extensions other than .xlsx and .csv.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// RowReader decodes the header row and every data row of a sheet.
type RowReader interface {
	// Stream calls fn for each data row in order. Returning an error from fn stops reading.
	Stream(ctx context.Context, r io.Reader, fn func(Row) error) error
}

// Extension returns the lower-cased extension of a filename.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Supported reports whether filename has an accepted extension.
func Supported(filename string) bool {
	switch Extension(filename) {
	case ExtXLSX, ExtCSV:
		return true
	}
	return false
}

// ReaderFor selects the row reader matching the filename extension.
func ReaderFor(filename string) (RowReader, error) {
	switch Extension(filename) {
	case ExtXLSX:
		return XLSXReader{}, nil
	case ExtCSV:
		return CSVReader{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
}

// ReadRows collects every row produced by reader.
func ReadRows(ctx context.Context, reader RowReader, r io.Reader) ([]Row, error) {
	rows := make([]Row, 0)
	err := reader.Stream(ctx, r, func(row Row) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Parse reads and normalizes every row of the sheet named filename.
func Parse(ctx context.Context, filename string, r io.Reader) ([]Record, error) {
	reader, err := ReaderFor(filename)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0)
	err = reader.Stream(ctx, r, func(row Row) error {
		records = append(records, Normalize(row))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// keyed zips header cells with a data row, skipping empty headers and absent cells.
func keyed(headers, cells []string) Row {
	row := make(Row, len(headers))
	for i, header := range headers {
		if header == "" || i >= len(cells) {
			continue
		}
		row[header] = cells[i]
	}
	return row
}

func blank(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
