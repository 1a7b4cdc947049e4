package tabular

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads the first worksheet of an Office Open XML workbook.
type XLSXReader struct{}

// Stream implements RowReader. Cells are read as raw stored values so numeric marks
// are not affected by the cell number format.
func (XLSXReader) Stream(ctx context.Context, r io.Reader, fn func(Row) error) error {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close() //nolint:errcheck

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}
	rows, err := book.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close() //nolint:errcheck

	var headers []string
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return fmt.Errorf("read sheet row: %w", err)
		}
		if blank(cells) {
			continue
		}
		if headers == nil {
			headers = cells
			continue
		}
		if err := fn(keyed(headers, cells)); err != nil {
			return err
		}
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("iterate sheet rows: %w", err)
	}
	return nil
}
