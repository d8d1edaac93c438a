package fetcher

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // overrides SheetIndex when set
	HasHeader  bool   // first row is returned as the header
}

// ReadXLSX reads a sheet into memory. Trailing empty rows are dropped.
func ReadXLSX(path string, opts XLSXOptions) ([]string, [][]string, error) {
	sheet, err := openSheet(path, opts)
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}

	if !opts.HasHeader {
		return nil, rows, nil
	}
	if len(rows) == 0 {
		return nil, nil, eris.Errorf("xlsx: %s has no header row", path)
	}
	return rows[0], rows[1:], nil
}

// StreamXLSX opens a sheet and streams its rows like StreamCSV.
func StreamXLSX(ctx context.Context, path string, opts XLSXOptions) ([]string, <-chan []string, <-chan error, error) {
	header, rows, err := ReadXLSX(path, opts)
	if err != nil {
		return nil, nil, nil, err
	}

	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)
	go func() {
		defer close(rowCh)
		defer close(errCh)
		for _, row := range rows {
			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xlsx: context cancelled")
				return
			}
		}
	}()
	return header, rowCh, errCh, nil
}

func openSheet(path string, opts XLSXOptions) (*xlsx.Sheet, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
