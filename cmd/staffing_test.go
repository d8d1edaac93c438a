//go:build !integration

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/staffing"
)

const staffingIndexHTML = `<table>
<tr><th>PFI</th><th>Facility</th><th>County</th><th>Plan</th></tr>
<tr><td>0001</td><td>Albany Medical Center Hospital</td><td>Albany</td><td><a href="/plans/0001.pdf">PDF</a></td></tr>
<tr><td>0002</td><td>Ellis Hospital</td><td>Schenectady</td><td><a href="/plans/0002.pdf">PDF</a></td></tr>
<tr><td>0003</td><td>St. Peter's Hospital</td><td>Albany</td><td><a href="/plans/0003.pdf">PDF</a></td></tr>
</table>`

func TestParseStaffingPDF(t *testing.T) {
	p := staffing.NewParser(staffing.DefaultConfig())
	header, rows, err := parseStaffingPDF(context.Background(), &fakeExtractor{pages: staffingPages()}, p, []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, staffing.Columns(p.Shifts()), header)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"0001", "Albany Medical Center Hospital", "Albany", "Capital District", "Critical Care", "Adult ICU", "12", "8.5", "10", "2"}, rows[0][:10])
	assert.Len(t, rows[0], len(header))
}

func TestParseStaffingPDF_ExtractError(t *testing.T) {
	p := staffing.NewParser(staffing.DefaultConfig())
	_, _, err := parseStaffingPDF(context.Background(), &fakeExtractor{err: errors.New("pdf: malformed")}, p, nil)
	assert.Error(t, err)
}

func TestLoadPlans(t *testing.T) {
	d := &fakeDownloader{docs: map[string][]byte{"https://example.test/index": []byte(staffingIndexHTML)}}

	plans, err := loadPlans(context.Background(), d, "https://example.test/index", "https://example.test", 0)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "https://example.test/plans/0002.pdf", plans[1].URL)

	limited, err := loadPlans(context.Background(), d, "https://example.test/index", "https://example.test", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestLoadPlans_FetchError(t *testing.T) {
	_, err := loadPlans(context.Background(), &fakeDownloader{}, "https://example.test/missing", "https://example.test", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch index")
}

func TestFailureRows(t *testing.T) {
	rows := failureRows([]model.Failure{
		{ItemID: "0002", ItemName: "Ellis Hospital", Error: "no staffing table", ErrorType: "permanent"},
	})
	assert.Equal(t, [][]string{{"0002", "Ellis Hospital", "no staffing table", "permanent"}}, rows)
	assert.Equal(t, []string{"pfi", "name", "error", "error_type"}, failureColumns)
}
