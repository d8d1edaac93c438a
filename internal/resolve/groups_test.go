package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroups_InsertionOrder(t *testing.T) {
	g := NewGroups()
	g.Add("ZETA", "1 A St", "Albany", "1", Row{"measure": "m1"})
	g.Add("ALPHA", "2 B St", "Troy", "2", Row{"measure": "m1"})
	g.Add("ZETA", "9 Other St", "Utica", "9", Row{"measure": "m2"})

	assert.Equal(t, []string{"ZETA", "ALPHA"}, g.Names())
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 3, g.RowCount())

	zeta, ok := g.Get("ZETA")
	require.True(t, ok)
	assert.Equal(t, "1 A St", zeta.Address, "key fields come from the first row")
	assert.Equal(t, "Albany", zeta.City)
	require.Len(t, zeta.Rows, 2)
	assert.Equal(t, "m2", zeta.Rows[1]["measure"])

	assert.Equal(t, "ALPHA", g.At(1).Name)

	_, ok = g.Get("missing")
	assert.False(t, ok)
}

func TestGroups_AddGroup(t *testing.T) {
	g := NewGroups()
	rows := []Row{{"a": "1"}}
	g.AddGroup(ExternalGroup{Name: "X", City: "Albany", Rows: rows})
	g.AddGroup(ExternalGroup{Name: "X", City: "Troy", Rows: []Row{{"a": "2"}}})

	rows[0] = Row{"a": "mutated"}

	x, ok := g.Get("X")
	require.True(t, ok)
	assert.Equal(t, "Albany", x.City)
	require.Len(t, x.Rows, 2)
	assert.Equal(t, "1", x.Rows[0]["a"])
	assert.Equal(t, "2", x.Rows[1]["a"])
}

func TestGroups_SetReplacesInPlace(t *testing.T) {
	g := NewGroups()
	g.Add("TWIN", "1 A St", "Albany", "1", Row{"id": "1"})
	g.Add("OTHER", "", "", "", Row{"id": "9"})
	g.Set("TWIN", "2 B St", "Troy", "2", Row{"id": "2"})
	g.Set("NEW", "", "", "", Row{"id": "3"})

	assert.Equal(t, []string{"TWIN", "OTHER", "NEW"}, g.Names())
	twin, ok := g.Get("TWIN")
	require.True(t, ok)
	require.Len(t, twin.Rows, 1)
	assert.Equal(t, "2", twin.Rows[0]["id"])
	assert.Equal(t, "Troy", twin.City)
	assert.Equal(t, 3, g.RowCount())
}

func TestGroups_NamesIsCopy(t *testing.T) {
	g := NewGroups()
	g.Add("A", "", "", "", Row{})
	names := g.Names()
	names[0] = "B"
	assert.Equal(t, []string{"A"}, g.Names())
}
