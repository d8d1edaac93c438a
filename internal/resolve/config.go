package resolve

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Mode selects which signals the scorer evaluates.
type Mode string

const (
	// ModeFull scores phone, name, address and city signals.
	ModeFull Mode = "full"
	// ModeNameOnly scores name signals only, for datasets without address or phone data.
	ModeNameOnly Mode = "name_only"
)

// maxSignalPoints caps any single signal.
const maxSignalPoints = 15

// DefaultGenericWords are removed from the shared-word intersection so two
// facilities sharing only words like HOSPITAL do not look related.
var DefaultGenericWords = []string{"HOSPITAL", "MEDICAL", "CENTER", "HEALTH", "SYSTEM", "THE"}

// Config holds the tunable parts of the scorer.
type Config struct {
	Mode                Mode     `yaml:"mode" mapstructure:"mode" json:"mode"`
	MinScore            int      `yaml:"min_score" mapstructure:"min_score" json:"min_score"`
	NameSubstringPoints int      `yaml:"name_substring_points" mapstructure:"name_substring_points" json:"name_substring_points"`
	SharedWordsPoints   int      `yaml:"shared_words_points" mapstructure:"shared_words_points" json:"shared_words_points"`
	SharedWordPoints    int      `yaml:"shared_word_points" mapstructure:"shared_word_points" json:"shared_word_points"`
	GenericWords        []string `yaml:"generic_words" mapstructure:"generic_words" json:"generic_words,omitempty"`
}

// FullConfig returns the configuration used when phone, address and city are available.
func FullConfig() Config {
	return Config{
		Mode:                ModeFull,
		MinScore:            8,
		NameSubstringPoints: 5,
		SharedWordsPoints:   4,
		SharedWordPoints:    2,
		GenericWords:        DefaultGenericWords,
	}
}

// NameOnlyConfig returns the configuration used when only facility names can be compared.
func NameOnlyConfig() Config {
	return Config{
		Mode:                ModeNameOnly,
		MinScore:            5,
		NameSubstringPoints: 7,
		SharedWordsPoints:   5,
		SharedWordPoints:    3,
		GenericWords:        DefaultGenericWords,
	}
}

// ConfigFor returns the preset for a mode.
func ConfigFor(mode Mode) (Config, error) {
	switch mode {
	case ModeFull, "":
		return FullConfig(), nil
	case ModeNameOnly:
		return NameOnlyConfig(), nil
	default:
		return Config{}, eris.Errorf("resolve: unknown match mode %q (valid: full, name_only)", mode)
	}
}

// WithDefaults fills zero fields from the preset of the configured mode.
func (c Config) WithDefaults() (Config, error) {
	preset, err := ConfigFor(c.Mode)
	if err != nil {
		return Config{}, err
	}
	if c.Mode == "" {
		c.Mode = preset.Mode
	}
	if c.MinScore == 0 {
		c.MinScore = preset.MinScore
	}
	if c.NameSubstringPoints == 0 {
		c.NameSubstringPoints = preset.NameSubstringPoints
	}
	if c.SharedWordsPoints == 0 {
		c.SharedWordsPoints = preset.SharedWordsPoints
	}
	if c.SharedWordPoints == 0 {
		c.SharedWordPoints = preset.SharedWordPoints
	}
	if c.GenericWords == nil {
		c.GenericWords = preset.GenericWords
	}
	return c, nil
}

// Validate checks that a Config is internally consistent.
func (c Config) Validate() error {
	var errs []string

	if c.Mode != ModeFull && c.Mode != ModeNameOnly {
		errs = append(errs, fmt.Sprintf("unknown mode %q", c.Mode))
	}
	if c.MinScore < 1 {
		errs = append(errs, "min_score must be >= 1")
	}

	points := []struct {
		name string
		v    int
	}{
		{"name_substring_points", c.NameSubstringPoints},
		{"shared_words_points", c.SharedWordsPoints},
		{"shared_word_points", c.SharedWordPoints},
	}
	for _, p := range points {
		if p.v < 0 || p.v > maxSignalPoints {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and %d", p.name, maxSignalPoints))
		}
	}
	if c.SharedWordPoints > c.SharedWordsPoints {
		errs = append(errs, "shared_word_points must not exceed shared_words_points")
	}

	if len(errs) > 0 {
		return eris.Errorf("resolve: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
