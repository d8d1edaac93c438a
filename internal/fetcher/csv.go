package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// utf8BOM prefixes many CMS exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	HasHeader  bool // first row is returned as the header instead of streamed
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads the header synchronously (when HasHeader is set) and streams
// the remaining rows. Both channels are closed when reading ends; at most one
// error is sent.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([]string, <-chan []string, <-chan error, error) {
	reader := newCSVReader(r, opts)

	var header []string
	if opts.HasHeader {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil, nil, nil, eris.New("csv: empty input, expected a header row")
		}
		if err != nil {
			return nil, nil, nil, eris.Wrap(err, "csv: read header")
		}
		header = clean(rec, true)
	}

	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			rec, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			select {
			case rowCh <- clean(rec, opts.TrimSpace):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return header, rowCh, errCh, nil
}

// ReadCSV reads a whole CSV into memory.
func ReadCSV(r io.Reader, opts CSVOptions) ([]string, [][]string, error) {
	reader := newCSVReader(r, opts)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "csv: read")
	}
	for i := range all {
		all[i] = clean(all[i], opts.TrimSpace)
	}
	if !opts.HasHeader {
		return nil, all, nil
	}
	if len(all) == 0 {
		return nil, nil, eris.New("csv: empty input, expected a header row")
	}
	return clean(all[0], true), all[1:], nil
}

func newCSVReader(r io.Reader, opts CSVOptions) *csv.Reader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false
	return reader
}

func clean(rec []string, trim bool) []string {
	if !trim {
		return rec
	}
	for i, v := range rec {
		rec[i] = strings.TrimSpace(v)
	}
	return rec
}
