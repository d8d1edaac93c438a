package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hospital-cli/internal/resolve"
)

func feed(rows [][]string, errs ...error) (<-chan []string, <-chan error) {
	rc := make(chan []string, len(rows))
	for _, r := range rows {
		rc <- r
	}
	close(rc)
	ec := make(chan error, len(errs))
	for _, e := range errs {
		ec <- e
	}
	close(ec)
	return rc, ec
}

var cmsHeader = []string{"Facility ID", "Facility Name", "Address", "City/Town", "State", "Telephone Number", "HCAHPS Measure ID"}

func mustProfile(t *testing.T, name string) Profile {
	t.Helper()
	p, err := NewRegistry().Get(name)
	require.NoError(t, err)
	return p
}

func TestProfile_LoadGroupsInOrder(t *testing.T) {
	p := mustProfile(t, "unplanned_visits")
	rows, errs := feed([][]string{
		{"330013", "ALBANY MEDICAL CENTER HOSPITAL", "43 NEW SCOTLAND AVENUE", "ALBANY", "NY", "(518) 262-3125", "X"},
		{"330013", "ALBANY MEDICAL CENTER HOSPITAL", "ignored for key", "ALBANY", "NY", "", "Y"},
		{"070001", "YALE NEW HAVEN HOSPITAL", "20 YORK STREET", "NEW HAVEN", "CT", "", "X"},
		{"330153", "ELLIS HOSPITAL", "1101 NOTT STREET", "SCHENECTADY", "NY"},
	})

	groups, st, err := p.Load(context.Background(), cmsHeader, rows, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALBANY MEDICAL CENTER HOSPITAL", "ELLIS HOSPITAL"}, groups.Names())

	albany, ok := groups.Get("ALBANY MEDICAL CENTER HOSPITAL")
	require.True(t, ok)
	assert.Len(t, albany.Rows, 2)
	assert.Equal(t, "43 NEW SCOTLAND AVENUE", albany.Address)
	assert.Equal(t, "(518) 262-3125", albany.Phone)

	ellis, _ := groups.Get("ELLIS HOSPITAL")
	assert.Equal(t, "", ellis.Phone, "short row reads missing cells as empty")
	assert.Equal(t, "", ellis.Rows[0]["HCAHPS Measure ID"])

	assert.Equal(t, LoadStats{Read: 4, OutOfState: 1, Kept: 3, Facilities: 2}, st)
}

func TestProfile_LoadHCAHPSFilter(t *testing.T) {
	p := mustProfile(t, "hcahps")
	measures := []struct {
		id   string
		keep bool
	}{
		{"H_STAR_RATING", true},
		{"H_COMP_1_STAR_RATING", true},
		{"H_COMP_1_A_P", true},
		{"H_CLEAN_HSP_Y_P", true},
		{"H_RECMND_PY", true},
		{"H_HSP_RATING_9_10", true},
		{"H_COMP_1_LINEAR_SCORE", true},
		{"H_QUIET_HSP_A", true},
		{"H_COMP_1_SN_P", false},
		{"H_COMP_1_U_P", false},
		{"H_QUIET_HSP_SA", false},
		{"H_HSP_RATING_0_6", false},
	}

	var in [][]string
	want := 0
	for _, m := range measures {
		in = append(in, []string{"330013", "ALBANY MEDICAL CENTER HOSPITAL", "", "", "NY", "", m.id})
		if m.keep {
			want++
		}
	}
	rows, errs := feed(in)
	groups, st, err := p.Load(context.Background(), cmsHeader, rows, errs)
	require.NoError(t, err)
	assert.Equal(t, want, groups.RowCount())
	assert.Equal(t, len(measures)-want, st.Filtered)

	for _, m := range measures {
		t.Run(m.id, func(t *testing.T) {
			assert.Equal(t, m.keep, p.Filter.Keep(resolve.Row{"HCAHPS Measure ID": m.id}))
		})
	}
}

func TestProfile_LoadDedupeByID(t *testing.T) {
	p := mustProfile(t, "hac_reduction")
	header := []string{"Facility Name", "Facility ID", "State", "Total HAC Score"}
	rows, errs := feed([][]string{
		{"ELLIS HOSPITAL", "330153", "NY", "6.1"},
		{"ELLIS HOSPITAL", "330153", "NY", "9.9"},
		{"NO ID HOSPITAL", "", "NY", "1"},
		{"NO ID HOSPITAL", "", "NY", "2"},
		{"TWIN NAME", "1", "NY", "a"},
		{"TWIN NAME", "2", "NY", "b"},
	})

	groups, st, err := p.Load(context.Background(), header, rows, errs)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Duplicates)

	ellis, _ := groups.Get("ELLIS HOSPITAL")
	require.Len(t, ellis.Rows, 1)
	assert.Equal(t, "6.1", ellis.Rows[0]["Total HAC Score"])

	noID, _ := groups.Get("NO ID HOSPITAL")
	assert.Len(t, noID.Rows, 1)

	twin, _ := groups.Get("TWIN NAME")
	require.Len(t, twin.Rows, 1)
	assert.Equal(t, "b", twin.Rows[0]["Total HAC Score"], "the later facility id wins the name")
	assert.Equal(t, 1, st.Replaced)
	assert.Equal(t, 3, st.Kept)
	assert.Equal(t, []string{"ELLIS HOSPITAL", "NO ID HOSPITAL", "TWIN NAME"}, groups.Names())
}

func TestProfile_LoadMissingColumn(t *testing.T) {
	p := mustProfile(t, "hcahps")
	rows, errs := feed(nil)
	_, _, err := p.Load(context.Background(), []string{"Facility Name", "State"}, rows, errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"HCAHPS Measure ID"`)
}

func TestProfile_LoadReadError(t *testing.T) {
	p := mustProfile(t, "unplanned_visits")
	rows, errs := feed(nil, errors.New("csv: bare quote"))
	_, _, err := p.Load(context.Background(), cmsHeader, rows, errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bare quote")
}

func TestProfile_LoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows, errs := feed([][]string{{"1", "A", "", "", "NY", "", ""}})
	_, _, err := mustProfile(t, "unplanned_visits").Load(ctx, cmsHeader, rows, errs)
	require.Error(t, err)
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Profile
		wantErr string
	}{
		{"ok", Profile{Name: "x", NameColumn: "Name"}, ""},
		{"no name", Profile{NameColumn: "Name"}, "name is required"},
		{"no column", Profile{Name: "x"}, "name_column is required"},
		{"bad mode", Profile{Name: "x", NameColumn: "N", Mode: "fuzzy"}, `unknown mode "fuzzy"`},
		{"state without column", Profile{Name: "x", NameColumn: "N", State: "NY"}, "state requires state_column"},
		{"dedupe without id", Profile{Name: "x", NameColumn: "N", DedupeByID: true}, "dedupe_by_id requires id_column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProfile_MatchConfig(t *testing.T) {
	full := mustProfile(t, "unplanned_visits")
	nameOnly := mustProfile(t, "hac_reduction")

	assert.Equal(t, resolve.ModeFull, full.MatchConfig(resolve.Config{}).Mode)

	tuned := resolve.Config{Mode: resolve.ModeFull, MinScore: 12}
	assert.Equal(t, 12, full.MatchConfig(tuned).MinScore)

	cfg := nameOnly.MatchConfig(tuned)
	assert.Equal(t, resolve.NameOnlyConfig().MinScore, cfg.MinScore)
	assert.Equal(t, resolve.ModeNameOnly, cfg.Mode)
}

func TestProfile_Placeholder(t *testing.T) {
	ph := mustProfile(t, "unplanned_visits").Placeholder()
	row := ph.Row(resolve.FacilityIdentity{Name: "A", Address: "1 Main St", City: "Troy", Phone: "518"})
	assert.Equal(t, resolve.Row{
		"Facility Name":    "A",
		"Address":          "1 Main St",
		"City/Town":        "Troy",
		"Telephone Number": "518",
		"State":            "NY",
	}, row)

	hac := mustProfile(t, "hac_reduction").Placeholder()
	assert.Equal(t, resolve.Row{"Facility Name": "A", "State": "NY"}, hac.Row(resolve.FacilityIdentity{Name: "A", Address: "x"}))
}

func TestLabels_For(t *testing.T) {
	var l Labels
	assert.Equal(t, "matched", l.For(resolve.StatusMatched))

	l = Labels{Matched: "YES", Unmatched: "YES (NOT IN NATIONAL DATA)", Extra: "NO"}
	assert.Equal(t, "YES", l.For(resolve.StatusMatched))
	assert.Equal(t, "YES (NOT IN NATIONAL DATA)", l.For(resolve.StatusUnmatched))
	assert.Equal(t, "NO", l.For(resolve.StatusExtra))
}

func TestToRow(t *testing.T) {
	assert.Equal(t, resolve.Row{"a": "1", "b": ""}, ToRow([]string{"a", "b"}, []string{"1"}))
	assert.Equal(t, resolve.Row{"a": "1"}, ToRow([]string{"a"}, []string{"1", "extra"}))
}
