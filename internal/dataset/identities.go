package dataset

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hospital-cli/internal/resolve"
)

// Directory CSV columns. Older exports carry one combined "City, State, ZIP"
// column instead of City.
const (
	colHospitalName = "Hospital Name"
	colStreet       = "Street Address"
	colCity         = "City"
	colCityStateZIP = "City, State, ZIP"
	colPhone        = "Phone"
)

// LoadIdentities builds the canonical identity list from a directory table.
// Repeated names keep their first row; blank names are skipped.
func LoadIdentities(header []string, rows [][]string) ([]resolve.FacilityIdentity, error) {
	if !contains(header, colHospitalName) {
		return nil, eris.Errorf("dataset: canonical list has no %q column", colHospitalName)
	}
	useCity := contains(header, colCity)

	seen := make(map[string]struct{}, len(rows))
	out := make([]resolve.FacilityIdentity, 0, len(rows))
	for _, rec := range rows {
		row := ToRow(header, rec)
		name := strings.TrimSpace(row[colHospitalName])
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		city := row[colCity]
		if !useCity {
			city, _, _ = strings.Cut(row[colCityStateZIP], ",")
		}
		out = append(out, resolve.FacilityIdentity{
			Name:    name,
			Address: strings.TrimSpace(row[colStreet]),
			City:    strings.TrimSpace(city),
			Phone:   strings.TrimSpace(row[colPhone]),
		})
	}
	return out, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
