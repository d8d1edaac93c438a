package model

import "strings"

// Page is one page of an extracted document. Tables holds every table found on
// the page as rows of cells, in reading order.
type Page struct {
	Number int          `json:"number"`
	Text   string       `json:"text"`
	Tables [][][]string `json:"tables,omitempty"`
}

// FirstLine returns the first line of the page text, trimmed.
func (p Page) FirstLine() string {
	line, _, _ := strings.Cut(p.Text, "\n")
	return strings.TrimSpace(line)
}

// FirstTable returns the first table on the page, or nil.
func (p Page) FirstTable() [][]string {
	if len(p.Tables) == 0 {
		return nil
	}
	return p.Tables[0]
}
