package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterPOS(t *testing.T) {
	header := []string{"PRVDR_NUM", "PRVDR_CTGRY_SBTYP_CD", "FAC_NAME", "BED_CNT"}
	rows, errs := feed([][]string{
		{"330013", "1", "ALBANY MED", "766"},
		{"330014", "01", "SHORT TERM", "100"},
		{"333300", "2", "LONG TERM", "50"},
		{"334000", "", "BLANK", "1"},
		{"335000", "1.0", "FLOAT CODE"},
	})

	out, st, err := FilterPOS(context.Background(), header, rows, errs, []string{"BED_CNT", "PRVDR_NUM"})
	require.NoError(t, err)
	assert.Equal(t, POSStats{Read: 5, Kept: 3}, st)
	assert.Equal(t, [][]string{{"766", "330013"}, {"100", "330014"}, {"", "335000"}}, out)
}

func TestFilterPOS_MissingColumns(t *testing.T) {
	rows, errs := feed(nil)
	_, _, err := FilterPOS(context.Background(), []string{"PRVDR_NUM"}, rows, errs, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), POSSubtypeColumn)

	rows, errs = feed(nil)
	_, _, err = FilterPOS(context.Background(), []string{POSSubtypeColumn}, rows, errs, []string{"RN_CNT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RN_CNT")
}
