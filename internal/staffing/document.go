package staffing

import (
	"go.uber.org/zap"

	"github.com/sells-group/hospital-cli/internal/model"
)

// Config controls page classification and unit filtering.
type Config struct {
	HeaderMarker string        `yaml:"header_marker" mapstructure:"header_marker" json:"header_marker"`
	ShiftMarkers []ShiftMarker `yaml:"shift_markers" mapstructure:"shift_markers" json:"shift_markers"`
	Units        []string      `yaml:"units" mapstructure:"units" json:"units"`
}

// DefaultConfig returns the markers and unit allow-list of the RN staffing report.
func DefaultConfig() Config {
	return Config{
		HeaderMarker: DefaultHeaderMarker,
		ShiftMarkers: DefaultShiftMarkers(),
		Units:        append([]string(nil), DefaultUnits...),
	}
}

// PageStats counts pages by classification.
type PageStats struct {
	Header       int `json:"header"`
	Shift        int `json:"shift"`
	Unrecognized int `json:"unrecognized"`
	// NoTable counts header or shift pages that carried no table.
	NoTable int `json:"no_table"`
}

// Report is the parsed content of one staffing document.
type Report struct {
	Header HeaderInfo    `json:"header"`
	Units  []*UnitRecord `json:"units"`
	Pages  PageStats     `json:"pages"`
}

// Parser turns extracted pages into a Report.
type Parser struct {
	classifier *Classifier
	extractor  *Extractor
	shifts     []Shift
}

// NewParser creates a Parser from cfg.
func NewParser(cfg Config) *Parser {
	c := NewClassifier(cfg.HeaderMarker, cfg.ShiftMarkers)
	return &Parser{
		classifier: c,
		extractor:  NewExtractor(cfg.Units),
		shifts:     c.Shifts(),
	}
}

// Shifts returns the shifts the parser recognizes, in marker order.
func (p *Parser) Shifts() []Shift {
	return p.shifts
}

// Parse classifies every page independently and folds header and shift tables
// into one Report. Only the first table of a page is read.
func (p *Parser) Parse(pages []model.Page) *Report {
	log := zap.L().With(zap.String("component", "staffing.parser"))

	rep := &Report{Header: make(HeaderInfo)}
	units := NewUnitSet()

	for _, page := range pages {
		sec := p.classifier.Classify(page.FirstLine())
		switch sec.Kind {
		case SectionHeader:
			rep.Pages.Header++
			table := page.FirstTable()
			if table == nil {
				rep.Pages.NoTable++
				continue
			}
			mergeHeader(rep.Header, table)
		case SectionShift:
			rep.Pages.Shift++
			table := page.FirstTable()
			if table == nil {
				rep.Pages.NoTable++
				continue
			}
			n := p.extractor.ExtractShift(units, sec.Shift, table)
			log.Debug("shift page parsed",
				zap.Int("page", page.Number),
				zap.String("shift", string(sec.Shift)),
				zap.Int("rows", n),
			)
		default:
			rep.Pages.Unrecognized++
		}
	}

	rep.Units = units.Records()
	return rep
}
