// Package export writes tabular results as CSV or XLSX.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// DefaultSheet names the single sheet of XLSX output.
const DefaultSheet = "Sheet1"

// WriteFile writes header and rows to path, choosing the format from the
// extension (.csv or .xlsx). Parent directories are created.
func WriteFile(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create directory %s", dir)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", "":
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", path)
		}
		if err := WriteCSV(f, header, rows); err != nil {
			_ = f.Close()
			return err
		}
		return eris.Wrap(f.Close(), "export: close file")
	case ".xlsx":
		return WriteXLSX(path, DefaultSheet, header, rows)
	default:
		return eris.Errorf("export: unsupported output format %q", filepath.Ext(path))
	}
}

// WriteCSV writes header (when non-nil) and rows as CSV.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if header != nil {
		if err := cw.Write(header); err != nil {
			return eris.Wrap(err, "export: write CSV header")
		}
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush CSV")
}

// WriteXLSX writes header and rows to a single-sheet workbook at path.
func WriteXLSX(path, sheetName string, header []string, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	add := func(cells []string) {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	if header != nil {
		add(header)
	}
	for _, r := range rows {
		add(r)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
