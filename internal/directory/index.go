package directory

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hospital-cli/internal/staffing"
)

// ParseStaffingIndex reads the staffing plan index table. The first row is the
// header; data rows need four cells: PFI, name, county, and a link to the
// normalized plan PDF. Rows without a link are skipped. Links are resolved
// against baseURL.
func ParseStaffingIndex(r io.Reader, baseURL string) ([]staffing.Plan, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "directory: parse base url %q", baseURL)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "directory: parse html")
	}

	var plans []staffing.Plan
	rows := doc.Find("table tr")
	if rows.Length() < 2 {
		return plans, nil
	}
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		href, ok := cells.Eq(3).Find("a").First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		link, err := base.Parse(href)
		if err != nil {
			return
		}

		plans = append(plans, staffing.Plan{
			Facility: staffing.Facility{
				PFI:    collapse(cells.Eq(0).Text()),
				Name:   collapse(cells.Eq(1).Text()),
				County: collapse(cells.Eq(2).Text()),
			},
			URL: link.String(),
		})
	})
	return plans, nil
}
