package dataset

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/hospital-cli/internal/resolve"
)

// CMS Provider Data Catalog column names shared by the hospital extracts.
const (
	cmsFacilityName = "Facility Name"
	cmsFacilityID   = "Facility ID"
	cmsAddress      = "Address"
	cmsCity         = "City/Town"
	cmsState        = "State"
	cmsPhone        = "Telephone Number"
)

// DefaultState is the jurisdiction of the canonical directory.
const DefaultState = "NY"

func cmsProfile(name, desc string, mode resolve.Mode) Profile {
	return Profile{
		Name:          name,
		Description:   desc,
		NameColumn:    cmsFacilityName,
		AddressColumn: cmsAddress,
		CityColumn:    cmsCity,
		PhoneColumn:   cmsPhone,
		StateColumn:   cmsState,
		IDColumn:      cmsFacilityID,
		State:         DefaultState,
		Mode:          mode,
	}
}

// Builtins returns the profiles of the CMS hospital extracts.
func Builtins() []Profile {
	visits := cmsProfile("unplanned_visits", "CMS Unplanned Hospital Visits, every measure row per facility", resolve.ModeFull)

	hcahps := cmsProfile("hcahps", "CMS HCAHPS patient survey, star ratings and top-box measures", resolve.ModeFull)
	hcahps.Filter = &RowFilter{
		Column:          "HCAHPS Measure ID",
		Equals:          []string{"H_STAR_RATING"},
		Suffixes:        []string{"_STAR_RATING", "_A_P", "_Y_P", "_PY", "_9_10", "_LINEAR_SCORE", "_A"},
		ExcludeSuffixes: []string{"_SA"},
	}

	hac := cmsProfile("hac_reduction", "CMS HAC Reduction Program, one row per facility", resolve.ModeNameOnly)
	hac.DedupeByID = true

	return []Profile{visits, hcahps, hac}
}

// Registry holds the known dataset profiles by name.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry creates a Registry holding the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range Builtins() {
		r.profiles[p.Name] = p
	}
	return r
}

// Register adds or replaces a profile after validating it.
func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.profiles[p.Name] = p
	return nil
}

// Get returns the profile called name.
func (r *Registry) Get(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, eris.Errorf("dataset: unknown profile %q (known: %v)", name, r.Names())
	}
	return p, nil
}

// Names returns the profile names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadFile registers every profile of a YAML file:
//
//	profiles:
//	  - name: hai
//	    name_column: Facility Name
//	    state_column: State
//	    state: NY
//	    mode: full
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "dataset: read profiles %s", path)
	}
	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return eris.Wrapf(err, "dataset: parse profiles %s", path)
	}
	for _, p := range pf.Profiles {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}
