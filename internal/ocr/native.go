package ocr

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-cli/internal/model"
)

// Native extracts pages in-process from the PDF text layer. Scanned documents
// without a text layer yield empty pages.
type Native struct {
	// cellGapFactor is the horizontal gap, in multiples of the font size, that
	// starts a new table cell.
	cellGapFactor float64
}

// NewNative creates a Native extractor.
func NewNative() *Native {
	return &Native{cellGapFactor: 1.0}
}

// ExtractPages reads every page, rebuilding lines from text runs sorted top to
// bottom and left to right.
func (n *Native) ExtractPages(ctx context.Context, data []byte) (pages []model.Page, err error) {
	// The PDF reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, eris.Errorf("ocr: malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "ocr: open pdf")
	}

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ocr: extraction cancelled")
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			zap.L().Warn("ocr: skipping unreadable page", zap.Int("page", i), zap.Error(err))
			pages = append(pages, model.Page{Number: i})
			continue
		}

		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Position > rows[b].Position })
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			if line := n.line(row.Content); strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, layoutPage(i, strings.Join(lines, "\n")))
	}
	return pages, nil
}

// line joins the text runs of one row. Small gaps become a single space and
// wide gaps a cell break.
func (n *Native) line(texts pdf.TextHorizontal) string {
	runs := append(pdf.TextHorizontal(nil), texts...)
	sort.SliceStable(runs, func(a, b int) bool { return runs[a].X < runs[b].X })

	var sb strings.Builder
	var end float64
	for i, t := range runs {
		if i > 0 {
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			switch gap := t.X - end; {
			case gap > n.cellGapFactor*size:
				sb.WriteString("   ")
			case gap > 0.2*size:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.S)
		end = t.X + t.W
	}
	return sb.String()
}
