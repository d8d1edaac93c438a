// Package resolve links canonical facility identities to the records of external
// datasets that name the same hospitals inconsistently.
package resolve

// FacilityIdentity is one entry of the canonical facility list.
type FacilityIdentity struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Row is a raw dataset row keyed by column name. Missing columns read as "".
type Row map[string]string

// ExternalGroup holds every row an external dataset carries for one facility name.
// The key fields come from the first row seen for that name.
type ExternalGroup struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Rows    []Row  `json:"rows"`
}

// Groups is an insertion-ordered collection of ExternalGroups keyed by facility
// name. Iteration order is the order in which names were first added, which
// makes it the tie-break order for matching.
type Groups struct {
	byName map[string]*ExternalGroup
	order  []string
}

// NewGroups creates an empty Groups.
func NewGroups() *Groups {
	return &Groups{byName: make(map[string]*ExternalGroup)}
}

// Add appends row to the group for name, creating the group with the given key
// fields on first sight. Key fields of an existing group are left unchanged.
func (g *Groups) Add(name, address, city, phone string, row Row) {
	grp, ok := g.byName[name]
	if !ok {
		grp = &ExternalGroup{Name: name, Address: address, City: city, Phone: phone}
		g.byName[name] = grp
		g.order = append(g.order, name)
	}
	grp.Rows = append(grp.Rows, row)
}

// Set makes row the only row of the group for name and takes its key fields.
// A known name keeps its insertion position.
func (g *Groups) Set(name, address, city, phone string, row Row) {
	if _, ok := g.byName[name]; !ok {
		g.order = append(g.order, name)
	}
	g.byName[name] = &ExternalGroup{Name: name, Address: address, City: city, Phone: phone, Rows: []Row{row}}
}

// AddGroup appends a whole group. Rows of a group with an already-known name are
// appended to the existing one.
func (g *Groups) AddGroup(grp ExternalGroup) {
	existing, ok := g.byName[grp.Name]
	if !ok {
		cp := grp
		cp.Rows = append([]Row(nil), grp.Rows...)
		g.byName[grp.Name] = &cp
		g.order = append(g.order, grp.Name)
		return
	}
	existing.Rows = append(existing.Rows, grp.Rows...)
}

// Get returns the group for name.
func (g *Groups) Get(name string) (*ExternalGroup, bool) {
	grp, ok := g.byName[name]
	return grp, ok
}

// Len returns the number of distinct facility names.
func (g *Groups) Len() int {
	return len(g.order)
}

// Names returns facility names in insertion order.
func (g *Groups) Names() []string {
	return append([]string(nil), g.order...)
}

// At returns the i-th group in insertion order.
func (g *Groups) At(i int) *ExternalGroup {
	return g.byName[g.order[i]]
}

// RowCount returns the total number of rows across all groups.
func (g *Groups) RowCount() int {
	n := 0
	for _, name := range g.order {
		n += len(g.byName[name].Rows)
	}
	return n
}
