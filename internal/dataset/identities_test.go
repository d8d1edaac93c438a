package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hospital-cli/internal/resolve"
)

func TestLoadIdentities(t *testing.T) {
	header := []string{"Hospital Name", "Street Address", "City", "State", "ZIP", "Phone"}
	ids, err := LoadIdentities(header, [][]string{
		{"Albany Medical Center Hospital", "43 New Scotland Avenue", "Albany", "NY", "12208", "(518) 262-3125"},
		{"  ", "blank name", "", "", "", ""},
		{"Ellis Hospital", "1101 Nott Street", "Schenectady", "NY", "12308", "518-243-4000"},
		{"Albany Medical Center Hospital", "duplicate", "", "", "", ""},
		{"Short Row"},
	})
	require.NoError(t, err)
	assert.Equal(t, []resolve.FacilityIdentity{
		{Name: "Albany Medical Center Hospital", Address: "43 New Scotland Avenue", City: "Albany", Phone: "(518) 262-3125"},
		{Name: "Ellis Hospital", Address: "1101 Nott Street", City: "Schenectady", Phone: "518-243-4000"},
		{Name: "Short Row"},
	}, ids)
}

func TestLoadIdentities_CombinedCityColumn(t *testing.T) {
	header := []string{"Hospital Name", "Street Address", "City, State, ZIP", "Phone"}
	ids, err := LoadIdentities(header, [][]string{
		{"Ellis Hospital", "1101 Nott Street", "Schenectady , NY 12308", "518"},
		{"No City", "", "", ""},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "Schenectady", ids[0].City)
	assert.Equal(t, "", ids[1].City)
}

func TestLoadIdentities_MissingNameColumn(t *testing.T) {
	_, err := LoadIdentities([]string{"Name"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Hospital Name")
}
