// Package directory scrapes the state hospital directory and the staffing plan
// index.
package directory

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Listing is one hospital of the state directory.
type Listing struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZIP     string `json:"zip"`
	Phone   string `json:"phone"`
}

// Columns is the header of the directory CSV.
var Columns = []string{"Hospital Name", "Street Address", "City", "State", "ZIP", "Phone"}

// Record returns the listing as a row aligned with Columns.
func (l Listing) Record() []string {
	return []string{l.Name, l.Address, l.City, l.State, l.ZIP, l.Phone}
}

// Records converts listings to rows aligned with Columns.
func Records(ls []Listing) [][]string {
	out := make([][]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Record())
	}
	return out
}

// ParseDirectory reads every div.listing holding at least four paragraphs:
// name, street address, "City, ST ZIP" and phone. Shorter listings are skipped.
func ParseDirectory(r io.Reader) ([]Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "directory: parse html")
	}

	var out []Listing
	doc.Find("div.listing").Each(func(_ int, sel *goquery.Selection) {
		ps := sel.Find("p")
		if ps.Length() < 4 {
			return
		}
		text := func(i int) string {
			return collapse(ps.Eq(i).Text())
		}

		l := Listing{
			Name:    text(0),
			Address: text(1),
			Phone:   strings.TrimSpace(strings.Replace(text(3), "Tel:", "", 1)),
		}
		l.City, l.State, l.ZIP = SplitCityStateZIP(text(2))
		out = append(out, l)
	})
	return out, nil
}

// SplitCityStateZIP splits "ALBANY, NY 12208" into its parts. The city is the
// text before the first comma; a missing part comes back empty.
func SplitCityStateZIP(s string) (city, state, zip string) {
	city, rest, found := strings.Cut(s, ",")
	city = strings.TrimSpace(city)
	if !found {
		return city, "", ""
	}

	fields := strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	switch len(fields) {
	case 0:
	case 1:
		if isZIP(fields[0]) {
			zip = fields[0]
		} else {
			state = fields[0]
		}
	default:
		state = fields[0]
		zip = fields[len(fields)-1]
	}
	return city, state, zip
}

func isZIP(s string) bool {
	if len(s) < 5 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// collapse trims s and folds internal whitespace runs, including the line
// breaks of wrapped markup, to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
