package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is an opened tabular file: its header and a stream of rows.
type Table struct {
	Header []string
	Rows   <-chan []string
	Errs   <-chan error

	cleanup []func()
}

// Close releases the file and any temporary extraction directory.
func (t *Table) Close() {
	for i := len(t.cleanup) - 1; i >= 0; i-- {
		t.cleanup[i]()
	}
	t.cleanup = nil
}

// OpenTable opens a .csv or .xlsx file, or a .zip archive holding one. A
// specific archive member is selected with "bundle.zip:member.csv". The
// first row is the header.
func OpenTable(ctx context.Context, spec string) (*Table, error) {
	path, member, _ := strings.Cut(spec, ".zip:")
	if member != "" {
		path += ".zip"
	}

	t := &Table{}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "hospital-zip-*")
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create temp dir")
		}
		t.cleanup = append(t.cleanup, func() { _ = os.RemoveAll(dir) })

		if member != "" {
			path, err = ExtractZIPFile(path, member, dir)
		} else {
			path, err = ExtractZIPTable(path, dir)
		}
		if err != nil {
			t.Close()
			return nil, err
		}
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			t.Close()
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		t.cleanup = append(t.cleanup, func() { _ = f.Close() })
		t.Header, t.Rows, t.Errs, err = StreamCSV(ctx, f, CSVOptions{HasHeader: true, LazyQuotes: true})
	case ".xlsx":
		t.Header, t.Rows, t.Errs, err = StreamXLSX(ctx, path, XLSXOptions{HasHeader: true})
	default:
		err = eris.Errorf("fetcher: unsupported table format %q", filepath.Ext(path))
	}
	if err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}
