package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hospital-cli/internal/model"
)

// PdfToText extracts pages using the pdftotext CLI tool in layout mode.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractPages writes the document to a temp file, runs pdftotext -layout on it
// and splits the output on form feeds.
func (p *PdfToText) ExtractPages(ctx context.Context, data []byte) ([]model.Page, error) {
	f, err := os.CreateTemp("", "hospital-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "ocr: create temp file")
	}
	defer os.Remove(f.Name()) //nolint:errcheck

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "ocr: write temp file")
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrap(err, "ocr: close temp file")
	}

	text, err := p.run(ctx, f.Name())
	if err != nil {
		return nil, err
	}
	return splitPages(text), nil
}

func (p *PdfToText) run(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed: %s", strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// splitPages splits pdftotext output on form feeds. The trailing form feed
// after the last page does not produce an extra page.
func splitPages(text string) []model.Page {
	parts := strings.Split(text, "\f")
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	pages := make([]model.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, layoutPage(i+1, part))
	}
	return pages
}
