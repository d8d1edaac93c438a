package dataset

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// POSSubtypeColumn holds the provider category subtype; 1 is a short-term
// acute care hospital.
const POSSubtypeColumn = "PRVDR_CTGRY_SBTYP_CD"

// POSStats counts the rows seen and kept by FilterPOS.
type POSStats struct {
	Read int `json:"read"`
	Kept int `json:"kept"`
}

// FilterPOS keeps provider-of-services rows whose subtype code is 1 and
// projects them onto columns, in that order.
func FilterPOS(ctx context.Context, header []string, rows <-chan []string, errs <-chan error, columns []string) ([][]string, POSStats, error) {
	var st POSStats

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	sub, ok := index[POSSubtypeColumn]
	if !ok {
		return nil, st, eris.Errorf("dataset: provider file has no %q column", POSSubtypeColumn)
	}
	proj := make([]int, len(columns))
	for i, c := range columns {
		j, ok := index[c]
		if !ok {
			return nil, st, eris.Errorf("dataset: provider file has no %q column", c)
		}
		proj[i] = j
	}

	var out [][]string
	for rec := range rows {
		if err := ctx.Err(); err != nil {
			return nil, st, eris.Wrap(err, "dataset: pos filter cancelled")
		}
		st.Read++
		if !isAcuteSubtype(field(rec, sub)) {
			continue
		}
		row := make([]string, len(proj))
		for i, j := range proj {
			row[i] = field(rec, j)
		}
		out = append(out, row)
		st.Kept++
	}
	if errs != nil {
		for err := range errs {
			if err != nil {
				return nil, st, eris.Wrap(err, "dataset: read provider rows")
			}
		}
	}
	return out, st, nil
}

// isAcuteSubtype accepts "1", "01" and "1.0".
func isAcuteSubtype(v string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return err == nil && f == 1
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
