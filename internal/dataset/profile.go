// Package dataset describes the external hospital datasets that are reconciled
// against the canonical directory and loads their rows into match groups.
package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-cli/internal/resolve"
)

// Labels are the values written to the flag column for each match status.
type Labels struct {
	Matched   string `yaml:"matched" json:"matched"`
	Unmatched string `yaml:"unmatched" json:"unmatched"`
	Extra     string `yaml:"extra" json:"extra"`
}

// For returns the label of a status, falling back to the status itself.
func (l Labels) For(s resolve.Status) string {
	var v string
	switch s {
	case resolve.StatusMatched:
		v = l.Matched
	case resolve.StatusUnmatched:
		v = l.Unmatched
	case resolve.StatusExtra:
		v = l.Extra
	}
	if v == "" {
		return string(s)
	}
	return v
}

// RowFilter keeps rows whose Column equals one of Equals, or ends with one of
// Suffixes without ending with one of ExcludeSuffixes.
type RowFilter struct {
	Column          string   `yaml:"column" json:"column"`
	Equals          []string `yaml:"equals" json:"equals,omitempty"`
	Suffixes        []string `yaml:"suffixes" json:"suffixes,omitempty"`
	ExcludeSuffixes []string `yaml:"exclude_suffixes" json:"exclude_suffixes,omitempty"`
}

// Keep applies the filter to one row.
func (f *RowFilter) Keep(row resolve.Row) bool {
	if f == nil || f.Column == "" {
		return true
	}
	v := row[f.Column]
	for _, eq := range f.Equals {
		if v == eq {
			return true
		}
	}
	for _, ex := range f.ExcludeSuffixes {
		if strings.HasSuffix(v, ex) {
			return false
		}
	}
	for _, suf := range f.Suffixes {
		if strings.HasSuffix(v, suf) {
			return true
		}
	}
	return false
}

// Profile describes one external dataset: where its match fields live, which
// rows belong to the jurisdiction, and how its facilities are compared.
type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`

	NameColumn    string `yaml:"name_column" json:"name_column"`
	AddressColumn string `yaml:"address_column" json:"address_column,omitempty"`
	CityColumn    string `yaml:"city_column" json:"city_column,omitempty"`
	PhoneColumn   string `yaml:"phone_column" json:"phone_column,omitempty"`
	StateColumn   string `yaml:"state_column" json:"state_column,omitempty"`
	IDColumn      string `yaml:"id_column" json:"id_column,omitempty"`

	// State keeps only rows whose StateColumn equals it. Empty keeps all rows.
	State string       `yaml:"state" json:"state,omitempty"`
	Mode  resolve.Mode `yaml:"mode" json:"mode"`

	Filter *RowFilter `yaml:"filter" json:"filter,omitempty"`
	// DedupeByID keeps the first row per IDColumn value, or per facility name
	// when the id is blank.
	DedupeByID bool   `yaml:"dedupe_by_id" json:"dedupe_by_id,omitempty"`
	Labels     Labels `yaml:"labels" json:"labels"`
}

// Validate checks the profile is usable.
func (p Profile) Validate() error {
	var errs []string
	if p.Name == "" {
		errs = append(errs, "name is required")
	}
	if p.NameColumn == "" {
		errs = append(errs, "name_column is required")
	}
	if p.Mode != "" && p.Mode != resolve.ModeFull && p.Mode != resolve.ModeNameOnly {
		errs = append(errs, fmt.Sprintf("unknown mode %q", p.Mode))
	}
	if p.State != "" && p.StateColumn == "" {
		errs = append(errs, "state requires state_column")
	}
	if p.DedupeByID && p.IDColumn == "" {
		errs = append(errs, "dedupe_by_id requires id_column")
	}
	if len(errs) > 0 {
		return eris.Errorf("dataset: profile %q invalid: %s", p.Name, strings.Join(errs, "; "))
	}
	return nil
}

// MatchConfig returns the scorer configuration for the profile. base supplies
// tuned values when it targets the same mode; otherwise the mode's preset is used.
func (p Profile) MatchConfig(base resolve.Config) resolve.Config {
	mode := p.Mode
	if mode == "" {
		mode = resolve.ModeFull
	}
	if base.Mode == "" || base.Mode == mode {
		base.Mode = mode
		return base
	}
	cfg, _ := resolve.ConfigFor(mode)
	if base.GenericWords != nil {
		cfg.GenericWords = base.GenericWords
	}
	return cfg
}

// Placeholder maps canonical identity fields onto the dataset columns for rows
// emitted when an identity has no data.
func (p Profile) Placeholder() resolve.Placeholder {
	ph := resolve.Placeholder{NameColumn: p.NameColumn}
	if p.Mode != resolve.ModeNameOnly {
		ph.AddressColumn = p.AddressColumn
		ph.CityColumn = p.CityColumn
		ph.PhoneColumn = p.PhoneColumn
	}
	if p.StateColumn != "" && p.State != "" {
		ph.Fixed = map[string]string{p.StateColumn: p.State}
	}
	return ph
}

// LoadStats counts what Load did with the input rows.
type LoadStats struct {
	Read       int `json:"read"`
	OutOfState int `json:"out_of_state"`
	Filtered   int `json:"filtered"`
	Duplicates int `json:"duplicates"`
	// Replaced counts rows that superseded an earlier facility id under the
	// same name. Deduplicated profiles keep one row per name, the latest.
	Replaced   int `json:"replaced"`
	Kept       int `json:"kept"`
	Facilities int `json:"facilities"`
}

// Load groups the jurisdiction's rows by facility name in input order. Rows
// shorter than the header read missing columns as "".
func (p Profile) Load(ctx context.Context, header []string, rows <-chan []string, errs <-chan error) (*resolve.Groups, LoadStats, error) {
	var st LoadStats
	if err := p.checkHeader(header); err != nil {
		return nil, st, err
	}

	groups := resolve.NewGroups()
	seen := make(map[string]struct{})

	for rec := range rows {
		if err := ctx.Err(); err != nil {
			return nil, st, eris.Wrap(err, "dataset: load cancelled")
		}
		st.Read++
		row := ToRow(header, rec)

		if p.State != "" && row[p.StateColumn] != p.State {
			st.OutOfState++
			continue
		}
		if !p.Filter.Keep(row) {
			st.Filtered++
			continue
		}
		name := row[p.NameColumn]
		if p.DedupeByID {
			key := row[p.IDColumn]
			if key == "" {
				key = name
			}
			if _, dup := seen[key]; dup {
				st.Duplicates++
				continue
			}
			seen[key] = struct{}{}
			if _, exists := groups.Get(name); exists {
				groups.Set(name, row[p.AddressColumn], row[p.CityColumn], row[p.PhoneColumn], row)
				st.Replaced++
				continue
			}
		}

		groups.Add(name, row[p.AddressColumn], row[p.CityColumn], row[p.PhoneColumn], row)
		st.Kept++
	}
	if errs != nil {
		for err := range errs {
			if err != nil {
				return nil, st, eris.Wrapf(err, "dataset: read %s rows", p.Name)
			}
		}
	}

	st.Facilities = groups.Len()
	zap.L().Info("dataset loaded",
		zap.String("dataset", p.Name),
		zap.Int("read", st.Read),
		zap.Int("kept", st.Kept),
		zap.Int("facilities", st.Facilities),
	)
	return groups, st, nil
}

func (p Profile) checkHeader(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	required := []string{p.NameColumn}
	if p.State != "" {
		required = append(required, p.StateColumn)
	}
	if p.Filter != nil && p.Filter.Column != "" {
		required = append(required, p.Filter.Column)
	}
	for _, col := range required {
		if !have[col] {
			return eris.Errorf("dataset: %s input has no %q column", p.Name, col)
		}
	}
	return nil
}

// ToRow zips a header and a record into a Row. Extra cells are dropped and
// missing cells read as "".
func ToRow(header, rec []string) resolve.Row {
	row := make(resolve.Row, len(header))
	for i, h := range header {
		if i < len(rec) {
			row[h] = rec[i]
		} else {
			row[h] = ""
		}
	}
	return row
}
