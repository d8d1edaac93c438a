package ocr

import (
	"regexp"
	"strings"

	"github.com/sells-group/hospital-cli/internal/model"
)

// cellGap separates columns in layout text.
var cellGap = regexp.MustCompile(`\s{2,}`)

// LayoutTable reads layout-preserving text as a single table: every non-blank
// line is a row and runs of two or more spaces separate cells.
func LayoutTable(text string) [][]string {
	var table [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "\t", "  "))
		if line == "" {
			continue
		}
		table = append(table, cellGap.Split(line, -1))
	}
	return table
}

// layoutPage builds a page from layout text. Leading blank lines are dropped
// so the first line is the page title.
func layoutPage(number int, text string) model.Page {
	text = strings.TrimLeft(strings.ReplaceAll(text, "\r\n", "\n"), "\n ")
	page := model.Page{Number: number, Text: text}
	if table := LayoutTable(text); len(table) > 0 {
		page.Tables = [][][]string{table}
	}
	return page
}
