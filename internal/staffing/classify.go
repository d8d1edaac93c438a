// Package staffing extracts per-unit nurse staffing figures from the pages of a
// hospital staffing plan report.
package staffing

import "strings"

// Shift is a reporting period within a staffing report.
type Shift string

const (
	ShiftDay     Shift = "day"
	ShiftEvening Shift = "evening"
	ShiftNight   Shift = "night"
)

// DefaultHeaderMarker identifies the hospital information page.
const DefaultHeaderMarker = "HOSPITAL INFORMATION"

// SectionKind tags the result of classifying a page.
type SectionKind int

const (
	SectionUnrecognized SectionKind = iota
	SectionHeader
	SectionShift
)

// String implements fmt.Stringer.
func (k SectionKind) String() string {
	switch k {
	case SectionHeader:
		return "header"
	case SectionShift:
		return "shift"
	default:
		return "unrecognized"
	}
}

// Section is the classification of one page. Shift is set only when Kind is
// SectionShift.
type Section struct {
	Kind  SectionKind
	Shift Shift
}

// ShiftMarker maps a shift to the text that opens its pages.
type ShiftMarker struct {
	Shift  Shift  `yaml:"shift" mapstructure:"shift" json:"shift"`
	Marker string `yaml:"marker" mapstructure:"marker" json:"marker"`
}

// DefaultShiftMarkers returns the markers of the RN shift tables, in match order.
func DefaultShiftMarkers() []ShiftMarker {
	return []ShiftMarker{
		{Shift: ShiftDay, Marker: "RN DAY SHIFT"},
		{Shift: ShiftEvening, Marker: "RN EVENING SHIFT"},
		{Shift: ShiftNight, Marker: "RN NIGHT SHIFT"},
	}
}

// Classifier assigns pages to sections by looking at their first line only.
// It holds no state between pages.
type Classifier struct {
	header string
	shifts []ShiftMarker
}

// NewClassifier creates a Classifier. Empty arguments fall back to the defaults.
func NewClassifier(headerMarker string, shifts []ShiftMarker) *Classifier {
	if headerMarker == "" {
		headerMarker = DefaultHeaderMarker
	}
	if len(shifts) == 0 {
		shifts = DefaultShiftMarkers()
	}
	c := &Classifier{header: strings.ToUpper(headerMarker)}
	for _, s := range shifts {
		c.shifts = append(c.shifts, ShiftMarker{Shift: s.Shift, Marker: strings.ToUpper(s.Marker)})
	}
	return c
}

// Classify returns the section of a page given its full extracted text. The
// header marker is checked before the shift markers, which are tried in order.
func (c *Classifier) Classify(pageText string) Section {
	first, _, _ := strings.Cut(pageText, "\n")
	first = strings.ToUpper(strings.TrimSpace(first))

	if strings.Contains(first, c.header) {
		return Section{Kind: SectionHeader}
	}
	for _, s := range c.shifts {
		if strings.Contains(first, s.Marker) {
			return Section{Kind: SectionShift, Shift: s.Shift}
		}
	}
	return Section{Kind: SectionUnrecognized}
}

// Shifts returns the configured shifts in marker order.
func (c *Classifier) Shifts() []Shift {
	out := make([]Shift, 0, len(c.shifts))
	seen := make(map[Shift]bool, len(c.shifts))
	for _, s := range c.shifts {
		if !seen[s.Shift] {
			seen[s.Shift] = true
			out = append(out, s.Shift)
		}
	}
	return out
}
