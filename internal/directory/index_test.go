package directory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hospital-cli/internal/staffing"
)

const indexHTML = `<html><body><table>
<tr><th>PFI</th><th>Facility</th><th>County</th><th>Normalized Plan</th></tr>
<tr><td>0001</td><td>Albany Medical Center Hospital</td><td>Albany</td>
    <td><a href="/facilities/hospital/staffing_plans/docs/0001.pdf">PDF</a></td></tr>
<tr><td>0002</td><td>Ellis Hospital</td><td>Schenectady</td><td>Not submitted</td></tr>
<tr><td>0003</td><td>Short row</td></tr>
<tr><td> 0004 </td><td>St. Peter's Hospital</td><td>Albany</td>
    <td><a href="https://cdn.example.test/0004.pdf">PDF</a></td></tr>
</table></body></html>`

func TestParseStaffingIndex(t *testing.T) {
	plans, err := ParseStaffingIndex(strings.NewReader(indexHTML), "https://www.health.ny.gov")
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, staffing.Plan{
		Facility: staffing.Facility{PFI: "0001", Name: "Albany Medical Center Hospital", County: "Albany"},
		URL:      "https://www.health.ny.gov/facilities/hospital/staffing_plans/docs/0001.pdf",
	}, plans[0])
	assert.Equal(t, "0004", plans[1].Facility.PFI)
	assert.Equal(t, "https://cdn.example.test/0004.pdf", plans[1].URL)
}

func TestParseStaffingIndex_NoRows(t *testing.T) {
	plans, err := ParseStaffingIndex(strings.NewReader("<table><tr><th>x</th></tr></table>"), "https://www.health.ny.gov")
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestParseStaffingIndex_BadBase(t *testing.T) {
	_, err := ParseStaffingIndex(strings.NewReader(""), "://bad")
	require.Error(t, err)
}
