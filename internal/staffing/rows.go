package staffing

// Facility identifies the hospital a report belongs to.
type Facility struct {
	PFI    string `json:"pfi"`
	Name   string `json:"name"`
	County string `json:"county"`
}

// FacilityFromHeader fills a Facility from the report's own header.
func FacilityFromHeader(h HeaderInfo) Facility {
	return Facility{
		PFI:    h[HeaderOrganizationID],
		Name:   h[HeaderOrganization],
		County: h[HeaderCounty],
	}
}

// Columns returns the header of the flattened unit table for the given shifts.
func Columns(shifts []Shift) []string {
	cols := []string{"pfi", "hospital_name", "county", "region", "unit_name", "unit_description"}
	for _, s := range shifts {
		for _, m := range Metrics {
			cols = append(cols, FieldKey(s, m))
		}
	}
	return cols
}

// Rows flattens a report into one row per unit, aligned with Columns(shifts).
// Metrics that were never observed are written as empty cells.
func Rows(fac Facility, rep *Report, shifts []Shift) [][]string {
	out := make([][]string, 0, len(rep.Units))
	for _, u := range rep.Units {
		row := []string{fac.PFI, fac.Name, fac.County, rep.Header[HeaderRegion], u.Name, u.Description}
		for _, s := range shifts {
			for _, m := range Metrics {
				row = append(row, u.Fields[FieldKey(s, m)])
			}
		}
		out = append(out, row)
	}
	return out
}
