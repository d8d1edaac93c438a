package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusValues(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusRunning, "running"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(tt.status))
	}
}

func TestRun_JSONOmitsEmptyStats(t *testing.T) {
	b, err := json.Marshal(Run{ID: "r1", Kind: RunKindStaffing, Status: RunStatusRunning})
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"stats"`)
	assert.Contains(t, string(b), `"kind":"staffing"`)
}

func TestPage_FirstLine(t *testing.T) {
	p := Page{Text: "  RN Day Shift  \nUnit Name  Count\n"}
	assert.Equal(t, "RN Day Shift", p.FirstLine())
	assert.Equal(t, "", Page{}.FirstLine())
	assert.Equal(t, "single", Page{Text: "single"}.FirstLine())
}

func TestPage_FirstTable(t *testing.T) {
	assert.Nil(t, Page{}.FirstTable())

	p := Page{Tables: [][][]string{{{"a"}}, {{"b"}}}}
	assert.Equal(t, [][]string{{"a"}}, p.FirstTable())
}
