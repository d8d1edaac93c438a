package staffing

import (
	"strings"
)

// Metric names, in the column order of a shift table starting at the third column.
const (
	MetricCount            = "count"
	MetricHoursPerPatient  = "hours_per_patient"
	MetricAvgPatients      = "avg_patients"
	MetricPatientsPerStaff = "patients_per_staff"
)

// Metrics lists the metric names in column order.
var Metrics = []string{MetricCount, MetricHoursPerPatient, MetricAvgPatients, MetricPatientsPerStaff}

// metricColumn is the table column holding the first metric.
const metricColumn = 2

// DefaultUnits is the allow-list of clinical units kept from shift tables.
var DefaultUnits = []string{"critical care", "intensive care", "medical/surgical", "emergency department"}

// FieldKey returns the record key for a shift metric, e.g. "night_avg_patients".
func FieldKey(shift Shift, metric string) string {
	return string(shift) + "_" + metric
}

// UnitKey identifies a unit within one report. The description is part of the
// key, so two rows of the same unit with different descriptions stay separate.
type UnitKey struct {
	Name        string
	Description string
}

// UnitRecord accumulates the metrics of one unit across shift pages. Fields
// holds only the metrics actually observed.
type UnitRecord struct {
	Name        string            `json:"unit_name"`
	Description string            `json:"unit_description"`
	Fields      map[string]string `json:"fields"`
}

// Get returns a field and whether it was observed.
func (u *UnitRecord) Get(key string) (string, bool) {
	v, ok := u.Fields[key]
	return v, ok
}

// UnitSet is an insertion-ordered collection of UnitRecords.
type UnitSet struct {
	byKey map[UnitKey]*UnitRecord
	order []UnitKey
}

// NewUnitSet creates an empty UnitSet.
func NewUnitSet() *UnitSet {
	return &UnitSet{byKey: make(map[UnitKey]*UnitRecord)}
}

// upsert returns the record for key, creating it on first sighting.
func (s *UnitSet) upsert(key UnitKey) *UnitRecord {
	rec, ok := s.byKey[key]
	if !ok {
		rec = &UnitRecord{Name: key.Name, Description: key.Description, Fields: make(map[string]string)}
		s.byKey[key] = rec
		s.order = append(s.order, key)
	}
	return rec
}

// Get returns the record for key.
func (s *UnitSet) Get(key UnitKey) (*UnitRecord, bool) {
	rec, ok := s.byKey[key]
	return rec, ok
}

// Len returns the number of distinct units.
func (s *UnitSet) Len() int {
	return len(s.order)
}

// Records returns the records in first-sighting order.
func (s *UnitSet) Records() []*UnitRecord {
	out := make([]*UnitRecord, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}

// Extractor pulls unit rows out of shift tables.
type Extractor struct {
	allow map[string]struct{}
}

// NewExtractor creates an Extractor keeping only the given unit names, compared
// lower-cased and trimmed. An empty list keeps every unit.
func NewExtractor(units []string) *Extractor {
	e := &Extractor{}
	if len(units) == 0 {
		return e
	}
	e.allow = make(map[string]struct{}, len(units))
	for _, u := range units {
		e.allow[strings.ToLower(strings.TrimSpace(u))] = struct{}{}
	}
	return e
}

// Keeps reports whether a unit name passes the allow-list.
func (e *Extractor) Keeps(unit string) bool {
	if e.allow == nil {
		return true
	}
	_, ok := e.allow[strings.ToLower(strings.TrimSpace(unit))]
	return ok
}

// ExtractShift folds the rows of one shift table into acc and returns the
// number of rows accepted. Row 0 is the section title and row 1 the column
// headers. Only this shift's fields are written, and a field that is already
// set is left alone.
func (e *Extractor) ExtractShift(acc *UnitSet, shift Shift, table [][]string) int {
	if len(table) <= 2 {
		return 0
	}

	n := 0
	for _, row := range table[2:] {
		name := cell(row, 0)
		if name == "" || !e.Keeps(name) {
			continue
		}

		rec := acc.upsert(UnitKey{Name: name, Description: cell(row, 1)})
		for i, metric := range Metrics {
			v := cell(row, metricColumn+i)
			if v == "" {
				continue
			}
			key := FieldKey(shift, metric)
			if _, set := rec.Fields[key]; !set {
				rec.Fields[key] = v
			}
		}
		n++
	}
	return n
}

// HeaderInfo holds the hospital information table, keyed by lower-cased field
// label with spaces replaced by underscores.
type HeaderInfo map[string]string

// Well-known header keys.
const (
	HeaderOrganizationID = "reporting_organization_id"
	HeaderOrganization   = "reporting_organization"
	HeaderCounty         = "county"
	HeaderRegion         = "region"
)

// ParseHeader reads a hospital information table. Row 0 is the table title;
// rows need at least two cells and a non-empty label.
func ParseHeader(table [][]string) HeaderInfo {
	info := make(HeaderInfo)
	mergeHeader(info, table)
	return info
}

func mergeHeader(info HeaderInfo, table [][]string) {
	if len(table) == 0 {
		return
	}
	for _, row := range table[1:] {
		if len(row) < 2 {
			continue
		}
		label := cell(row, 0)
		if label == "" {
			continue
		}
		key := strings.ReplaceAll(strings.ToLower(label), " ", "_")
		info[key] = cell(row, 1)
	}
}

// cell returns the trimmed i-th cell of row, or "" when the row is short.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
